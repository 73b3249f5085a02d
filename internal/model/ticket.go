package model

import "time"

// Ticket status values.  ACTIVE is the initial state; PAID is the
// terminal success state.  PAYMENT_FAILED exists in the enumeration
// for completeness but the exit flow deliberately leaves a ticket
// ACTIVE after a declined payment so that the caller may retry.
const (
    TicketStatusActive        = "ACTIVE"
    TicketStatusPaid          = "PAID"
    TicketStatusPaymentFailed = "PAYMENT_FAILED"
)

// Ticket records one vehicle's occupancy of one slot from entry to
// exit.  The slot reference is fixed at creation and never changes;
// exiting only updates the ticket status and exit time together with
// the slot's own status.  At most one ACTIVE ticket may exist per
// vehicle, enforced by a unique key on (vehicle_id, active) where the
// active column is 1 for ACTIVE rows and NULL otherwise.
//
// Fields:
//  ID        – primary key identifier.
//  VehicleID – vehicle that holds the ticket.
//  SlotID    – slot reserved for the stay (immutable).
//  EntryTime – when the vehicle entered (UTC).
//  ExitTime  – when the vehicle exited (nil while parked).
//  Status    – ACTIVE, PAID or PAYMENT_FAILED.
type Ticket struct {
    ID        uint64     // tickets.id
    VehicleID uint64     // tickets.vehicle_id
    SlotID    uint64     // tickets.slot_id
    EntryTime time.Time  // tickets.entry_time
    ExitTime  *time.Time // tickets.exit_time (nullable)
    Status    string     // tickets.status
}
