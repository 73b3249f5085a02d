// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketPaidEvent is published when a ticket is paid and the vehicle
// exits.  It carries enough information for downstream consumers to
// log, notify, or feed analytics without querying the primary
// database.
type TicketPaidEvent struct {
    TicketID    uint64 `json:"ticket_id"`
    Plate       string `json:"plate"`
    LotID       uint64 `json:"lot_id"`
    SlotID      uint64 `json:"slot_id"`
    Floor       int    `json:"floor"`
    Number      int    `json:"number"`
    AmountCents int64  `json:"amount_cents"`
    EntryTime   string `json:"entry_time"`
    ExitTime    string `json:"exit_time"`
}
