// Command rule-ingest loads tax and loyalty rule dumps into the database.
//
// Dumps are gzip-compressed JSONL files exported from the back office, one
// rule object per line. Files matching tax-rules-*.jsonl.gz carry tax rules;
// loyalty-rules-*.jsonl.gz carry loyalty rules. Exports overlap (each nightly
// dump repeats the full catalog), so rule names are deduplicated across all
// files before upserting; the first occurrence wins.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/josephbruno/v11pos/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

type taxRuleRow struct {
	name       string
	rateBps    int64
	appliesTo  string
	minAmount  *int64
	maxAmount  *int64
	compounded bool
	priority   int64
	active     bool
}

type loyaltyRuleRow struct {
	name             string
	earnRate         int64
	redeemRate       int64
	minRedeemPoints  int64
	maxRedeemPercent int64
	expiryDays       *int64
	priority         int64
	active           bool
}

// dedup tracks rule names already accepted. The bloom filter answers the
// common "never seen" case without touching the map; the map confirms
// positives so a filter collision cannot drop a real rule.
type dedup struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	names  map[string]struct{}
}

func newDedup() *dedup {
	return &dedup{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		names:  make(map[string]struct{}),
	}
}

// claim reports whether name is new and marks it seen.
func (d *dedup) claim(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.filter.TestString(name) {
		if _, ok := d.names[name]; ok {
			return false
		}
	}
	d.filter.AddString(name)
	d.names[name] = struct{}{}
	return true
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing rule dump files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("rule ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("rule ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	taxFiles, err := filepath.Glob(filepath.Join(dataDir, "tax-rules-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob tax rule dumps")
	}
	loyaltyFiles, err := filepath.Glob(filepath.Join(dataDir, "loyalty-rules-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob loyalty rule dumps")
	}
	if len(taxFiles)+len(loyaltyFiles) == 0 {
		return errors.Errorf("no rule dumps found in %s", dataDir)
	}

	slog.Info("parsing rule dumps",
		slog.Int("tax_files", len(taxFiles)),
		slog.Int("loyalty_files", len(loyaltyFiles)),
	)

	var (
		taxMu    sync.Mutex
		taxRules []taxRuleRow
		taxSeen  = newDedup()

		loyaltyMu    sync.Mutex
		loyaltyRules []loyaltyRuleRow
		loyaltySeen  = newDedup()
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range taxFiles {
		g.Go(func() error {
			return streamLines(gctx, path, func(line []byte) error {
				rule, err := parseTaxRule(line)
				if err != nil {
					return err
				}
				if !taxSeen.claim(rule.name) {
					return nil
				}
				taxMu.Lock()
				taxRules = append(taxRules, rule)
				taxMu.Unlock()
				return nil
			})
		})
	}
	for _, path := range loyaltyFiles {
		g.Go(func() error {
			return streamLines(gctx, path, func(line []byte) error {
				rule, err := parseLoyaltyRule(line)
				if err != nil {
					return err
				}
				if !loyaltySeen.claim(rule.name) {
					return nil
				}
				loyaltyMu.Lock()
				loyaltyRules = append(loyaltyRules, rule)
				loyaltyMu.Unlock()
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("rules parsed",
		slog.Int("tax_rules", len(taxRules)),
		slog.Int("loyalty_rules", len(loyaltyRules)),
	)

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := writeTaxRules(ctx, pool, taxRules); err != nil {
		return errors.Wrap(err, "write tax rules")
	}
	if err := writeLoyaltyRules(ctx, pool, loyaltyRules); err != nil {
		return errors.Wrap(err, "write loyalty rules")
	}
	return nil
}

// streamLines opens a gzip-compressed file and calls fn for each non-empty line.
func streamLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return errors.Wrapf(err, "parse line in %s", path)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func parseTaxRule(line []byte) (taxRuleRow, error) {
	rule := taxRuleRow{appliesTo: "all", active: true}
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			rule.name, err = d.Str()
		case "rate_bps":
			rule.rateBps, err = d.Int64()
		case "applicable_on":
			rule.appliesTo, err = d.Str()
		case "min_amount":
			rule.minAmount, err = optInt64(d)
		case "max_amount":
			rule.maxAmount, err = optInt64(d)
		case "compounded":
			rule.compounded, err = d.Bool()
		case "priority":
			rule.priority, err = d.Int64()
		case "active":
			rule.active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return taxRuleRow{}, err
	}
	if rule.name == "" {
		return taxRuleRow{}, errors.New("tax rule missing name")
	}
	return rule, nil
}

func parseLoyaltyRule(line []byte) (loyaltyRuleRow, error) {
	rule := loyaltyRuleRow{active: true}
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			rule.name, err = d.Str()
		case "earn_rate":
			rule.earnRate, err = d.Int64()
		case "redeem_rate":
			rule.redeemRate, err = d.Int64()
		case "min_redeem_points":
			rule.minRedeemPoints, err = d.Int64()
		case "max_redeem_percent":
			rule.maxRedeemPercent, err = d.Int64()
		case "expiry_days":
			rule.expiryDays, err = optInt64(d)
		case "priority":
			rule.priority, err = d.Int64()
		case "active":
			rule.active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return loyaltyRuleRow{}, err
	}
	if rule.name == "" {
		return loyaltyRuleRow{}, errors.New("loyalty rule missing name")
	}
	return rule, nil
}

func optInt64(d *jx.Decoder) (*int64, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Int64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeTaxRules(ctx context.Context, pool *pgxpool.Pool, rules []taxRuleRow) error {
	slog.Info("writing tax rules", slog.Int("count", len(rules)))
	for _, r := range rules {
		_, err := pool.Exec(ctx, `
			INSERT INTO tax_rules (id, name, rate_bps, applicable_on, min_amount, max_amount, compounded, priority, active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (name) DO UPDATE SET
				rate_bps = EXCLUDED.rate_bps,
				applicable_on = EXCLUDED.applicable_on,
				min_amount = EXCLUDED.min_amount,
				max_amount = EXCLUDED.max_amount,
				compounded = EXCLUDED.compounded,
				priority = EXCLUDED.priority,
				active = EXCLUDED.active`,
			uuid.New(), r.name, r.rateBps, r.appliesTo, r.minAmount, r.maxAmount,
			r.compounded, r.priority, r.active,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert tax rule %s", r.name)
		}
	}
	return nil
}

func writeLoyaltyRules(ctx context.Context, pool *pgxpool.Pool, rules []loyaltyRuleRow) error {
	slog.Info("writing loyalty rules", slog.Int("count", len(rules)))
	for _, r := range rules {
		_, err := pool.Exec(ctx, `
			INSERT INTO loyalty_rules (id, name, earn_rate, redeem_rate, min_redeem_points, max_redeem_percent, expiry_days, priority, active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (name) DO UPDATE SET
				earn_rate = EXCLUDED.earn_rate,
				redeem_rate = EXCLUDED.redeem_rate,
				min_redeem_points = EXCLUDED.min_redeem_points,
				max_redeem_percent = EXCLUDED.max_redeem_percent,
				expiry_days = EXCLUDED.expiry_days,
				priority = EXCLUDED.priority,
				active = EXCLUDED.active`,
			uuid.New(), r.name, r.earnRate, r.redeemRate, r.minRedeemPoints,
			r.maxRedeemPercent, r.expiryDays, r.priority, r.active,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert loyalty rule %s", r.name)
		}
	}
	return nil
}
