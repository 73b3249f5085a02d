// Package repository defines the raw database/sql data access layer
// together with sentinel error values reused across repositories.
// Handlers and services compare against these sentinels with
// errors.Is to distinguish failure scenarios: a missing lot or ticket
// maps to a 404, a duplicate active ticket to a 409, and so on.
package repository

import "errors"

// ErrLotNotFound is returned when an operation references a parking
// lot that does not exist.
var ErrLotNotFound = errors.New("parking lot not found")

// ErrTicketNotFound is returned when no ticket exists for the given
// identifier.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrAlreadyParked is returned when a vehicle with an ACTIVE ticket
// attempts to enter again.  The unique key on (vehicle_id, active)
// raises this even when two entries for the same plate race.
var ErrAlreadyParked = errors.New("vehicle already parked with active ticket")

// ErrSlotExists is returned when an admin tries to create a slot at a
// lot/floor/number position that is already taken.
var ErrSlotExists = errors.New("slot already exists at this position")
