package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/parkwise/parking/internal/model"
)

// PaymentRepo persists charge attempts.  The unique key on ticket_id
// guarantees one payment row per ticket; retries update the row in
// place instead of accumulating duplicates.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Upsert records the state of the payment for a ticket, creating the
// row on the first attempt and updating it on every subsequent one.
func (r *PaymentRepo) Upsert(ctx context.Context, ticketID uint64, amountCents int64, status string, ts time.Time) error {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO payments (ticket_id, amount_cents, status, timestamp) VALUES (?, ?, ?, ?)
         ON DUPLICATE KEY UPDATE amount_cents = VALUES(amount_cents), status = VALUES(status), timestamp = VALUES(timestamp)`,
        ticketID, amountCents, status, ts.UTC().Format("2006-01-02 15:04:05"))
    return err
}

// GetByTicket loads the payment record for a ticket.  It returns
// sql.ErrNoRows when no charge has been attempted yet.
func (r *PaymentRepo) GetByTicket(ctx context.Context, ticketID uint64) (model.Payment, error) {
    var p model.Payment
    err := r.db.QueryRowContext(ctx,
        `SELECT id, ticket_id, amount_cents, status, timestamp FROM payments WHERE ticket_id = ?`,
        ticketID).Scan(&p.ID, &p.TicketID, &p.AmountCents, &p.Status, &p.Timestamp)
    return p, err
}
