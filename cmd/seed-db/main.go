// Command seed-db loads the menu and a default rule set into the database so
// a fresh environment can settle orders immediately.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephbruno/v11pos/internal/storage/postgres"
)

type productJSON struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Department  string    `json:"department"`
	PrepMinutes int       `json:"prep_minutes"`
	Stock       int64     `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to menu JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedRules(ctx, pool); err != nil {
		return errors.Wrap(err, "seed rules")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading menu file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read menu file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse menu JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		department := p.Department
		if department == "" {
			department = "kitchen"
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, price, department, prep_minutes, stock)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				price = EXCLUDED.price,
				department = EXCLUDED.department,
				prep_minutes = EXCLUDED.prep_minutes,
				stock = EXCLUDED.stock`,
			p.ID, p.Name, p.Price, department, p.PrepMinutes, p.Stock,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID.String()), slog.String("name", p.Name))
	}
	return nil
}

func seedRules(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding default rules")

	_, err := pool.Exec(ctx, `
		INSERT INTO tax_rules (id, name, rate_bps, applicable_on, compounded, priority, active)
		VALUES ($1, 'GST', 1050, 'all', FALSE, 0, TRUE)
		ON CONFLICT (name) DO NOTHING`, uuid.New())
	if err != nil {
		return errors.Wrap(err, "upsert default tax rule")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO loyalty_rules (id, name, earn_rate, redeem_rate, min_redeem_points, max_redeem_percent, expiry_days, priority, active)
		VALUES ($1, 'standard', 100, 100, 10, 50, 365, 0, TRUE)
		ON CONFLICT (name) DO NOTHING`, uuid.New())
	if err != nil {
		return errors.Wrap(err, "upsert default loyalty rule")
	}
	return nil
}
