package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephbruno/v11pos/internal/domain/loyalty"
	"github.com/josephbruno/v11pos/internal/domain/tax"
)

var (
	_ tax.Repository         = (*TaxRuleRepository)(nil)
	_ loyalty.RuleRepository = (*LoyaltyRuleRepository)(nil)
)

// TaxRuleRepository serves the active tax rule catalog.
type TaxRuleRepository struct {
	pool *pgxpool.Pool
}

// NewTaxRuleRepository returns a TaxRuleRepository that uses the given pool.
func NewTaxRuleRepository(pool *pgxpool.Pool) *TaxRuleRepository {
	return &TaxRuleRepository{pool: pool}
}

// ActiveRules returns all active tax rules. Evaluation order is decided by
// the engine, not the query.
func (r *TaxRuleRepository) ActiveRules(ctx context.Context) ([]tax.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, rate_bps, applicable_on, min_amount, max_amount, compounded, priority, active
		FROM tax_rules WHERE active`)
	if err != nil {
		return nil, errors.Wrap(err, "load tax rules")
	}
	defer rows.Close()

	var out []tax.Rule
	for rows.Next() {
		var rule tax.Rule
		err := rows.Scan(&rule.Name, &rule.RateBps, &rule.AppliesTo,
			&rule.MinAmount, &rule.MaxAmount, &rule.Compounded, &rule.Priority, &rule.Active)
		if err != nil {
			return nil, errors.Wrap(err, "scan tax rule")
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// LoyaltyRuleRepository serves the active loyalty rule catalog.
type LoyaltyRuleRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRuleRepository returns a LoyaltyRuleRepository that uses the given pool.
func NewLoyaltyRuleRepository(pool *pgxpool.Pool) *LoyaltyRuleRepository {
	return &LoyaltyRuleRepository{pool: pool}
}

// ActiveRules returns all active loyalty rules.
func (r *LoyaltyRuleRepository) ActiveRules(ctx context.Context) ([]loyalty.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, earn_rate, redeem_rate, min_redeem_points, max_redeem_percent,
		       expiry_days, priority, active
		FROM loyalty_rules WHERE active`)
	if err != nil {
		return nil, errors.Wrap(err, "load loyalty rules")
	}
	defer rows.Close()

	var out []loyalty.Rule
	for rows.Next() {
		var rule loyalty.Rule
		err := rows.Scan(&rule.Name, &rule.EarnRateX100, &rule.RedeemRateX100,
			&rule.MinRedeemPoints, &rule.MaxRedeemPercent,
			&rule.ExpiryDays, &rule.Priority, &rule.Active)
		if err != nil {
			return nil, errors.Wrap(err, "scan loyalty rule")
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
