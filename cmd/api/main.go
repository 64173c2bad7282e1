package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/puntoventa/pos-backoffice/internal/application/product"
	"github.com/puntoventa/pos-backoffice/internal/application/reconciliation"
	"github.com/puntoventa/pos-backoffice/internal/application/sale"
	"github.com/puntoventa/pos-backoffice/internal/application/stock"
	"github.com/puntoventa/pos-backoffice/internal/infrastructure/cache"
	"github.com/puntoventa/pos-backoffice/internal/infrastructure/postgres"
	httpRouter "github.com/puntoventa/pos-backoffice/internal/interfaces/http"
	"github.com/puntoventa/pos-backoffice/pkg/config"
	"github.com/puntoventa/pos-backoffice/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	productRepo := postgres.NewProductRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	reconRepo := postgres.NewReconciliationRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Cache opcional: sin REDIS_ADDR se usan las variantes noop.
	var lowStockCache product.ListCache = cache.NoopLowStockCache{}
	var reportCache reconciliation.ReportStore = &cache.NoopReportCache{}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Redis inaccesible, siguiendo sin cache")
		} else {
			lowStockCache = redisCache
			reportCache = redisCache
			defer redisCache.Close()
		}
	}

	stockUC := stock.NewStockUseCase(txRunner)
	productUC := product.NewProductUseCase(productRepo, stockUC, lowStockCache)
	processSaleUC := sale.NewProcessSaleUseCase(txRunner, stockUC, productRepo, customerRepo, saleRepo, movementRepo)
	reconUC := reconciliation.NewReconciliationUseCase(reconRepo, txRunner, stockUC, reportCache, log)

	if cfg.Reconciliation.Enabled {
		scheduler := reconciliation.NewScheduler(reconUC, cfg.Reconciliation.Interval, cfg.Reconciliation.Window, log)
		scheduler.Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    cfg.App.Name,
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:        productUC,
		StockUC:          stockUC,
		ProcessSale:      processSaleUC,
		ReconciliationUC: reconUC,
		MovementRepo:     movementRepo,
		JWTSecret:        cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	cancel() // detiene el auditor en segundo plano

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
