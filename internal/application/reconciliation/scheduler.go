package reconciliation

import (
	"context"
	"time"

	"github.com/puntoventa/pos-backoffice/pkg/logger"
)

// Scheduler corre la conciliación periódicamente en segundo plano sobre una
// ventana móvil. Se detiene cuando el contexto se cancela (apagado del proceso).
type Scheduler struct {
	uc       *ReconciliationUseCase
	interval time.Duration
	window   time.Duration
	log      *logger.Logger
}

// NewScheduler construye el planificador del auditor.
func NewScheduler(uc *ReconciliationUseCase, interval, window time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{uc: uc, interval: interval, window: window, log: log}
}

// Start lanza el loop en una goroutine propia y retorna de inmediato.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info().
		Dur("interval", s.interval).
		Dur("window", s.window).
		Msg("auditor de conciliación iniciado")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("auditor de conciliación detenido")
			return
		case <-ticker.C:
			to := time.Now()
			from := to.Add(-s.window)
			if _, err := s.uc.Run(ctx, from, to); err != nil {
				s.log.Error().Err(err).Msg("corrida de conciliación fallida")
			}
		}
	}
}
