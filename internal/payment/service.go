package payment

import (
    "context"
    "errors"
    "time"

    "github.com/parkwise/parking/internal/model"
)

// RecordStore persists the payment record for a ticket.  One row per
// ticket; Upsert updates the existing row on retries.
type RecordStore interface {
    Upsert(ctx context.Context, ticketID uint64, amountCents int64, status string, ts time.Time) error
}

// Service drives a single charge attempt: it writes the INITIATED
// record, calls the gateway, and settles the record to SUCCESS or
// FAILED.  The record transitions are best-effort bookkeeping around
// the gateway call; the ticket state machine itself is owned by the
// lifecycle service.
type Service struct {
    records RecordStore
    gateway Gateway
    now     func() time.Time
}

// NewService returns a payment Service over the given store and
// gateway.
func NewService(records RecordStore, gateway Gateway) *Service {
    return &Service{records: records, gateway: gateway, now: func() time.Time { return time.Now().UTC() }}
}

// Initiate charges the given amount for a ticket.  ErrDeclined is
// returned on a gateway refusal with the record marked FAILED; nil
// means the record is SUCCESS and the money moved.
func (s *Service) Initiate(ctx context.Context, ticketID uint64, amountCents int64) error {
    if err := s.records.Upsert(ctx, ticketID, amountCents, model.PaymentStatusInitiated, s.now()); err != nil {
        return err
    }
    if err := s.gateway.Charge(ctx, ticketID, amountCents); err != nil {
        if errors.Is(err, ErrDeclined) {
            if recErr := s.records.Upsert(ctx, ticketID, amountCents, model.PaymentStatusFailed, s.now()); recErr != nil {
                return recErr
            }
        }
        return err
    }
    return s.records.Upsert(ctx, ticketID, amountCents, model.PaymentStatusSuccess, s.now())
}
