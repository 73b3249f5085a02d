package model

// PricingRule configures the fee schedule for one vehicle type.  At
// most one rule exists per type; when none is configured a built-in
// default applies (see the pricing package).  Monetary values are
// stored in cents to avoid floating point rounding.
//
// Fields:
//  ID           – primary key identifier.
//  Type         – vehicle class this rule applies to.
//  FreeMinutes  – minutes of stay that are not billed.
//  RateCentsPerHour – price of one billable hour, in cents.
type PricingRule struct {
    ID               uint64      // pricing_rules.id
    Type             VehicleType // pricing_rules.type
    FreeMinutes      int         // pricing_rules.free_minutes
    RateCentsPerHour int64       // pricing_rules.rate_cents_per_hour
}
