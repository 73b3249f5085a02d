package model

import "time"

// Payment status values as stored in payments.status.
const (
    PaymentStatusInitiated = "INITIATED"
    PaymentStatusSuccess   = "SUCCESS"
    PaymentStatusFailed    = "FAILED"
)

// Payment is the record of a charge attempt for a ticket.  There is
// exactly one payment row per ticket (unique key on ticket_id);
// re-initiating a payment updates the existing row rather than
// inserting a duplicate.
//
// Fields:
//  ID          – primary key identifier.
//  TicketID    – ticket being charged (unique).
//  AmountCents – charged amount in cents.
//  Status      – INITIATED, SUCCESS or FAILED.
//  Timestamp   – when the attempt was last updated (UTC).
type Payment struct {
    ID          uint64    // payments.id
    TicketID    uint64    // payments.ticket_id
    AmountCents int64     // payments.amount_cents
    Status      string    // payments.status
    Timestamp   time.Time // payments.timestamp
}
