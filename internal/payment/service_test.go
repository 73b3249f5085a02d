package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parkwise/parking/internal/model"
)

type recordCall struct {
	ticketID uint64
	amount   int64
	status   string
}

type fakeRecords struct {
	calls []recordCall
}

func (f *fakeRecords) Upsert(ctx context.Context, ticketID uint64, amountCents int64, status string, ts time.Time) error {
	f.calls = append(f.calls, recordCall{ticketID, amountCents, status})
	return nil
}

type stubGateway struct{ err error }

func (g stubGateway) Charge(ctx context.Context, ticketID uint64, amountCents int64) error {
	return g.err
}

func TestService_Initiate(t *testing.T) {
	t.Parallel()

	t.Run("success settles record to SUCCESS", func(t *testing.T) {
		records := &fakeRecords{}
		svc := NewService(records, stubGateway{})

		if err := svc.Initiate(context.Background(), 7, 2000); err != nil {
			t.Fatalf("Initiate: %v", err)
		}
		want := []string{model.PaymentStatusInitiated, model.PaymentStatusSuccess}
		if len(records.calls) != len(want) {
			t.Fatalf("expected %d record writes, got %d", len(want), len(records.calls))
		}
		for i, status := range want {
			if records.calls[i].status != status || records.calls[i].ticketID != 7 || records.calls[i].amount != 2000 {
				t.Fatalf("call %d = %+v, want status %s for ticket 7 amount 2000", i, records.calls[i], status)
			}
		}
	})

	t.Run("decline settles record to FAILED and returns ErrDeclined", func(t *testing.T) {
		records := &fakeRecords{}
		svc := NewService(records, stubGateway{err: ErrDeclined})

		err := svc.Initiate(context.Background(), 7, 2000)
		if !errors.Is(err, ErrDeclined) {
			t.Fatalf("expected ErrDeclined, got %v", err)
		}
		if len(records.calls) != 2 || records.calls[1].status != model.PaymentStatusFailed {
			t.Fatalf("expected INITIATED then FAILED, got %+v", records.calls)
		}
	})

	t.Run("infrastructure error leaves record INITIATED", func(t *testing.T) {
		records := &fakeRecords{}
		boom := errors.New("gateway unreachable")
		svc := NewService(records, stubGateway{err: boom})

		if err := svc.Initiate(context.Background(), 7, 2000); !errors.Is(err, boom) {
			t.Fatalf("expected underlying error, got %v", err)
		}
		if len(records.calls) != 1 || records.calls[0].status != model.PaymentStatusInitiated {
			t.Fatalf("expected only the INITIATED write, got %+v", records.calls)
		}
	})
}
