package repository

import (
    "context"
    "database/sql"

    "github.com/parkwise/parking/internal/model"
)

// PricingRuleRepo reads and upserts the per-type fee schedule.  The
// allocation core treats rules as read-only; Upsert exists for the
// admin flow.
type PricingRuleRepo struct {
    db *sql.DB
}

// NewPricingRuleRepo returns a PricingRuleRepo bound to the database.
func NewPricingRuleRepo(db *sql.DB) *PricingRuleRepo { return &PricingRuleRepo{db: db} }

// RuleFor returns the configured rule for a vehicle type.  The second
// return value is false when no rule is configured, in which case the
// pricing engine falls back to its built-in default for that type.
func (r *PricingRuleRepo) RuleFor(ctx context.Context, vt model.VehicleType) (model.PricingRule, bool, error) {
    var rule model.PricingRule
    err := r.db.QueryRowContext(ctx,
        `SELECT id, type, free_minutes, rate_cents_per_hour FROM pricing_rules WHERE type = ?`,
        string(vt)).Scan(&rule.ID, &rule.Type, &rule.FreeMinutes, &rule.RateCentsPerHour)
    if err == sql.ErrNoRows {
        return model.PricingRule{}, false, nil
    }
    if err != nil {
        return model.PricingRule{}, false, err
    }
    return rule, true, nil
}

// Upsert creates or replaces the rule for a vehicle type.  The unique
// key on type makes this a single-row operation.
func (r *PricingRuleRepo) Upsert(ctx context.Context, vt model.VehicleType, freeMinutes int, rateCents int64) (model.PricingRule, error) {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO pricing_rules (type, free_minutes, rate_cents_per_hour) VALUES (?, ?, ?)
         ON DUPLICATE KEY UPDATE free_minutes = VALUES(free_minutes), rate_cents_per_hour = VALUES(rate_cents_per_hour)`,
        string(vt), freeMinutes, rateCents)
    if err != nil {
        return model.PricingRule{}, err
    }
    rule, _, err := r.RuleFor(ctx, vt)
    return rule, err
}

// List returns all configured rules ordered by type.
func (r *PricingRuleRepo) List(ctx context.Context) ([]model.PricingRule, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, type, free_minutes, rate_cents_per_hour FROM pricing_rules ORDER BY type`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var rules []model.PricingRule
    for rows.Next() {
        var rule model.PricingRule
        if err := rows.Scan(&rule.ID, &rule.Type, &rule.FreeMinutes, &rule.RateCentsPerHour); err != nil {
            return nil, err
        }
        rules = append(rules, rule)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return rules, nil
}
