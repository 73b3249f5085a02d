package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/parkwise/parking/internal/model"
)

func TestAmountForRule(t *testing.T) {
	t.Parallel()

	rule := model.PricingRule{
		Type:             model.VehicleTypeCar,
		FreeMinutes:      120,
		RateCentsPerHour: 2000,
	}

	cases := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"within free window", 119 * time.Minute, 0},
		{"exactly free window", 120 * time.Minute, 0},
		{"one minute over rounds up to an hour", 121 * time.Minute, 2000},
		{"exactly one billable hour", 180 * time.Minute, 2000},
		{"two billable hours", 240 * time.Minute, 4000},
		{"partial second hour rounds up", 181 * time.Minute, 4000},
		{"zero stay", 0, 0},
		{"negative elapsed clamps to zero", -30 * time.Minute, 0},
		{"sub-minute remainder is dropped", 120*time.Minute + 59*time.Second, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := AmountForRule(rule, tc.elapsed); got != tc.want {
				t.Fatalf("AmountForRule(%v) = %d, want %d", tc.elapsed, got, tc.want)
			}
		})
	}
}

type fixedRules struct {
	rule model.PricingRule
	ok   bool
}

func (f fixedRules) RuleFor(ctx context.Context, vt model.VehicleType) (model.PricingRule, bool, error) {
	return f.rule, f.ok, nil
}

func TestEngine_Amount(t *testing.T) {
	t.Parallel()

	t.Run("uses configured rule", func(t *testing.T) {
		e := NewEngine(fixedRules{rule: model.PricingRule{FreeMinutes: 0, RateCentsPerHour: 500}, ok: true})
		got, err := e.Amount(context.Background(), model.VehicleTypeCar, 30*time.Minute)
		if err != nil {
			t.Fatalf("Amount: %v", err)
		}
		if got != 500 {
			t.Fatalf("Amount = %d, want 500", got)
		}
	})

	t.Run("falls back to default per type", func(t *testing.T) {
		e := NewEngine(fixedRules{ok: false})
		for _, tc := range []struct {
			vt   model.VehicleType
			want int64
		}{
			{model.VehicleTypeBike, DefaultBikeRateCents},
			{model.VehicleTypeCar, DefaultCarRateCents},
			{model.VehicleTypeTruck, DefaultTruckRateCents},
		} {
			got, err := e.Amount(context.Background(), tc.vt, 121*time.Minute)
			if err != nil {
				t.Fatalf("Amount(%s): %v", tc.vt, err)
			}
			if got != tc.want {
				t.Fatalf("Amount(%s) = %d, want %d (one billable hour at the default rate)", tc.vt, got, tc.want)
			}
		}
	})
}

func TestFormatCents(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{2000, "20.00"},
		{4001, "40.01"},
		{-150, "-1.50"},
	} {
		if got := FormatCents(tc.cents); got != tc.want {
			t.Fatalf("FormatCents(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
