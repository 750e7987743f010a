// ledgerctl tareas de operación del libro de inventario.
//
// Uso:
//
//	go run ./cmd/ledgerctl migrate
//	go run ./cmd/ledgerctl verify
//	go run ./cmd/ledgerctl rebuild
//	go run ./cmd/ledgerctl token <user_id> <role>
//	go run ./cmd/ledgerctl import-products [-latin1] productos.csv
//
// Lee la misma configuración que cmd/api (.env y variables de entorno).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	cmd := os.Args[1]
	// run cierra el pool antes de volver; os.Exit no ejecuta defers
	err = run(context.Background(), cfg, log, cmd, os.Args[2:])
	switch {
	case errors.Is(err, errUnknownCommand):
		usage()
		os.Exit(2)
	case err != nil:
		log.Error().Err(err).Str("cmd", cmd).Msg("ledgerctl")
		os.Exit(1)
	}
}

var errUnknownCommand = errors.New("unknown command")

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, cmd string, args []string) error {
	switch cmd {
	case "token":
		return runToken(cfg, args)
	case "migrate", "verify", "rebuild", "import-products":
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()
	switch cmd {
	case "migrate":
		return runMigrate(pool, log)
	case "verify":
		return runVerify(ctx, cfg, pool, log)
	case "rebuild":
		return runRebuild(ctx, cfg, pool, log)
	default:
		return runImport(ctx, pool, log, args)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "uso: ledgerctl migrate|verify|rebuild|token <user_id> <role>|import-products [-latin1] <archivo.csv>")
}

func runMigrate(pool *pgxpool.Pool, log *logger.Logger) error {
	status, err := postgres.Migrate(pool, log.Component("migrate"))
	if err != nil {
		return err
	}
	fmt.Printf("versión %d (cambios: %t)\n", status.Version, status.Changed)
	return nil
}

func newProjector(cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) *inventory.Projector {
	return inventory.NewProjector(
		postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		postgres.NewTransactionRepository(pool),
		postgres.NewStockRepository(pool),
		postgres.NewProductRepository(pool),
		nil,
		log.Component("projector"),
	)
}

// runVerify sale con error si la proyección no coincide con el libro.
func runVerify(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) error {
	drift, err := newProjector(cfg, pool, log).Verify(ctx)
	if err != nil {
		return err
	}
	for _, d := range drift {
		fmt.Printf("%s\tguardado=%d\tlibro=%d\n", d.ProductID, d.Stored, d.Replayed)
	}
	if len(drift) > 0 {
		return fmt.Errorf("projection drift in %d products", len(drift))
	}
	fmt.Println("proyección consistente")
	return nil
}

func runRebuild(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) error {
	levels, err := newProjector(cfg, pool, log).Rebuild(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("proyección reconstruida: %d productos\n", len(levels))
	return nil
}

// runToken emite un JWT de desarrollo firmado con JWT_SECRET.
func runToken(cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("token: expected <user_id> <role>")
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, args[0], args[1], cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func runImport(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("import-products", flag.ContinueOnError)
	latin1 := fs.Bool("latin1", false, "el archivo está en Windows-1252 / ISO-8859-1")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import-products: expected one csv file")
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	rows, err := readProducts(f, *latin1)
	if err != nil {
		return err
	}
	uc := usecase.NewProductUseCase(postgres.NewProductRepository(pool), postgres.NewCategoryRepository(pool))
	for i, in := range rows {
		out, err := uc.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("row %d (%s): %w", i+2, in.Name, err)
		}
		log.Info().Str("product_id", out.ID).Str("name", out.Name).Msg("producto importado")
	}
	fmt.Printf("%d productos importados\n", len(rows))
	return nil
}
