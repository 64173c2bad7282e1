// Comando de conciliación bajo demanda: ejecuta una corrida del auditor sobre
// la ventana indicada e imprime el reporte como JSON. Pensado para cron o para
// una corrida manual después de un incidente.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/puntoventa/pos-backoffice/internal/application/reconciliation"
	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/infrastructure/cache"
	"github.com/puntoventa/pos-backoffice/internal/infrastructure/postgres"
	"github.com/puntoventa/pos-backoffice/pkg/config"
	"github.com/puntoventa/pos-backoffice/pkg/logger"
)

func main() {
	windowHours := flag.Int("window-hours", 24, "ventana hacia atrás a auditar, en horas")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	reconRepo := postgres.NewReconciliationRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	stockUC := stock.NewStockUseCase(txRunner)

	var reports reconciliation.ReportStore = &cache.NoopReportCache{}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(ctx); err == nil {
			reports = redisCache
			defer redisCache.Close()
		}
	}

	uc := reconciliation.NewReconciliationUseCase(reconRepo, txRunner, stockUC, reports, log)

	to := time.Now()
	from := to.Add(-time.Duration(*windowHours) * time.Hour)
	report, err := uc.Run(ctx, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("corrida de conciliación")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("serializar reporte")
	}
}
