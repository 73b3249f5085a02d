// Package pricing computes the parking fee for a stay.  Money is
// carried in cents end to end so the arithmetic is exact; rounding to
// two decimals is a property of the representation rather than a
// floating point afterthought.
package pricing

import (
    "context"
    "fmt"
    "time"

    "github.com/parkwise/parking/internal/model"
)

// Built-in fallback schedule applied when no rule is configured for a
// vehicle type.  Every class gets the same free window; the hourly
// rate scales with vehicle size.
const (
    DefaultFreeMinutes = 120

    DefaultBikeRateCents  = 1000 // 10.00 per hour
    DefaultCarRateCents   = 2000 // 20.00 per hour
    DefaultTruckRateCents = 4000 // 40.00 per hour
)

// RuleStore looks up the configured pricing rule for a vehicle type.
// The boolean is false when no rule exists, in which case the engine
// substitutes the built-in default for that type.
type RuleStore interface {
    RuleFor(ctx context.Context, vt model.VehicleType) (model.PricingRule, bool, error)
}

// Engine resolves the applicable rule and prices a stay.
type Engine struct {
    rules RuleStore
}

// NewEngine returns an Engine backed by the given rule store.
func NewEngine(rules RuleStore) *Engine { return &Engine{rules: rules} }

// Amount returns the fee in cents for a stay of the given elapsed
// duration by a vehicle of the given type.
func (e *Engine) Amount(ctx context.Context, vt model.VehicleType, elapsed time.Duration) (int64, error) {
    rule, ok, err := e.rules.RuleFor(ctx, vt)
    if err != nil {
        return 0, err
    }
    if !ok {
        rule = DefaultRule(vt)
    }
    return AmountForRule(rule, elapsed), nil
}

// AmountForRule prices a stay against one concrete rule.  Elapsed
// time is clamped at zero so inverted clocks can never produce a
// negative fee; whole minutes beyond the free window are billed in
// hour blocks, any started hour counting in full.
func AmountForRule(rule model.PricingRule, elapsed time.Duration) int64 {
    minutes := int64(elapsed / time.Minute)
    if minutes < 0 {
        minutes = 0
    }
    billableMinutes := minutes - int64(rule.FreeMinutes)
    if billableMinutes < 0 {
        billableMinutes = 0
    }
    billableHours := (billableMinutes + 59) / 60
    return billableHours * rule.RateCentsPerHour
}

// DefaultRule returns the built-in rule for a vehicle type.
func DefaultRule(vt model.VehicleType) model.PricingRule {
    rule := model.PricingRule{Type: vt, FreeMinutes: DefaultFreeMinutes}
    switch vt {
    case model.VehicleTypeBike:
        rule.RateCentsPerHour = DefaultBikeRateCents
    case model.VehicleTypeCar:
        rule.RateCentsPerHour = DefaultCarRateCents
    case model.VehicleTypeTruck:
        rule.RateCentsPerHour = DefaultTruckRateCents
    }
    return rule
}

// FormatCents renders a cent amount as a fixed two-decimal string,
// e.g. 2000 -> "20.00".  Fees are never negative but the sign is
// handled anyway so the helper is safe for deltas.
func FormatCents(cents int64) string {
    sign := ""
    if cents < 0 {
        sign = "-"
        cents = -cents
    }
    return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
