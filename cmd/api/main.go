package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/internal/interfaces/ws"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// backend repositorios y TxRunner del almacenamiento elegido.
type backend struct {
	txRunner   inventory.TxRunner
	ledger     repository.TransactionRepository
	stock      repository.StockRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.Store).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento del libro")
	}
	defer store.close()

	hub := ws.NewHub(log.Component("ws"))
	go hub.Run(ctx)

	locks := inventory.NewKeyLocker(cfg.Ledger.LockTimeout)
	movementUC := inventory.NewRegisterMovementUseCase(store.txRunner, store.products, locks, hub, log.Component("movements"))
	reconUC := inventory.NewReconciliationUseCase(store.txRunner, store.ledger, store.products, locks, hub, log.Component("reconciliation"))
	projector := inventory.NewProjector(store.txRunner, store.ledger, store.stock, store.products, hub, log.Component("projector"))
	queryUC := inventory.NewLedgerQueryUseCase(store.ledger, projector)
	replenishmentUC := inventory.NewReplenishmentUseCase(projector, store.ledger)
	productUC := usecase.NewProductUseCase(store.products, store.categories)
	categoryUC := usecase.NewCategoryUseCase(store.categories)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log.Component("http")),
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New())
	if cfg.HTTP.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.HTTP.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/health" || c.Path() == "/ws"
			},
		}))
	}
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Stock Ledger API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"service":    cfg.App.Name,
			"store":      cfg.Ledger.Store,
			"ws_clients": hub.ClientCount(),
		})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:      productUC,
		CategoryUC:     categoryUC,
		Movements:      movementUC,
		Reconciliation: reconUC,
		Queries:        queryUC,
		Projector:      projector,
		Replenishment:  replenishmentUC,
		Hub:            hub,
		JWTSecret:      cfg.JWT.Secret,
		Log:            log.Component("http"),
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stop()

	log.Info().Msg("aplicación detenida")
}

// openBackend abre PostgreSQL (con migraciones opcionales) o el almacenamiento en memoria.
func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	if cfg.Ledger.Store == config.StoreMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &backend{
			txRunner:   memory.NewTxRunner(s),
			ledger:     memory.NewTransactionRepository(s),
			stock:      memory.NewStockRepository(s),
			products:   memory.NewProductRepository(s),
			categories: memory.NewCategoryRepository(s),
			close:      func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.MigrateOnStart {
		if _, err := postgres.Migrate(pool, log.Component("migrate")); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &backend{
		txRunner:   postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		ledger:     postgres.NewTransactionRepository(pool),
		stock:      postgres.NewStockRepository(pool),
		products:   postgres.NewProductRepository(pool),
		categories: postgres.NewCategoryRepository(pool),
		close:      pool.Close,
	}, nil
}
