// Package service orchestrates the ticket lifecycle: vehicle entry
// with slot allocation, fee preview, payment-and-exit and receipts.
// The service owns the ticket state machine (ACTIVE → PAID) and the
// ordering rules that keep slots and tickets consistent: a slot is
// reserved before its ticket exists only inside Enter, which rolls
// the reservation back if ticket creation fails, and a slot is freed
// on exit only after the ticket is durably PAID.
package service

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/parkwise/parking/internal/allocation"
    "github.com/parkwise/parking/internal/model"
    "github.com/parkwise/parking/internal/payment"
    "github.com/parkwise/parking/internal/queue"
    "github.com/parkwise/parking/internal/repository"
)

// ErrNoCapacity is returned by Enter when no matching slot could be
// secured.  It is an expected negative outcome, not a fault.
var ErrNoCapacity = errors.New("no slot available")

// ErrTicketNotActive is returned when PayAndExit is called on a
// ticket that already reached a terminal state.  The call is a benign
// no-op: nothing is charged and nothing is freed twice.
var ErrTicketNotActive = errors.New("ticket is not active")

// VehicleStore resolves or creates vehicles.  Upsert must be
// race-safe for concurrent first-seen plates.
type VehicleStore interface {
    Upsert(ctx context.Context, plate string, vt model.VehicleType, ownerEmail string) (model.Vehicle, error)
}

// TicketStore persists tickets.  CreateActive must enforce the
// one-ACTIVE-ticket-per-vehicle invariant at the storage level and
// return repository.ErrAlreadyParked when it is violated, including
// under races that slip past HasActiveByPlate.
type TicketStore interface {
    CreateActive(ctx context.Context, vehicleID, slotID uint64, entry time.Time) (model.Ticket, error)
    HasActiveByPlate(ctx context.Context, plate string) (bool, error)
    GetDetail(ctx context.Context, ticketID uint64) (repository.TicketDetail, error)
    MarkPaid(ctx context.Context, ticketID uint64, exit time.Time) error
}

// Pricer computes the fee in cents for a stay.
type Pricer interface {
    Amount(ctx context.Context, vt model.VehicleType, elapsed time.Duration) (int64, error)
}

// Charger performs one charge attempt against the payment gateway,
// keeping the payment record in step.  payment.ErrDeclined signals a
// refusal; the gateway is never retried automatically.
type Charger interface {
    Initiate(ctx context.Context, ticketID uint64, amountCents int64) error
}

// Publisher emits domain events after successful exits.  Publishing
// is best-effort; a broker outage must never fail a paid exit.
type Publisher interface {
    PublishTicketPaid(ctx context.Context, ev queue.TicketPaidEvent) error
}

// TicketService wires the collaborators together.  One instance
// serves all concurrent callers; it holds no mutable state of its
// own, every invariant lives in the stores' atomic operations.
type TicketService struct {
    vehicles  VehicleStore
    tickets   TicketStore
    strategy  allocation.Strategy
    pricer    Pricer
    charger   Charger
    publisher Publisher
    now       func() time.Time
}

// NewTicketService constructs the lifecycle service.  The publisher
// may be nil when no broker is configured.
func NewTicketService(vehicles VehicleStore, tickets TicketStore, strategy allocation.Strategy, pricer Pricer, charger Charger, publisher Publisher) *TicketService {
    if vehicles == nil || tickets == nil || strategy == nil || pricer == nil || charger == nil {
        panic("nil dependency passed to NewTicketService")
    }
    return &TicketService{
        vehicles:  vehicles,
        tickets:   tickets,
        strategy:  strategy,
        pricer:    pricer,
        charger:   charger,
        publisher: publisher,
        now:       func() time.Time { return time.Now().UTC() },
    }
}

// EntryResult is returned to the gate on a successful entry.
type EntryResult struct {
    TicketID  uint64
    SlotID    uint64
    Floor     int
    Number    int
    Plate     string
    EntryTime time.Time
}

// Enter admits a vehicle: it resolves the vehicle record, secures a
// slot through the configured strategy and opens an ACTIVE ticket.
// Failure modes: repository.ErrAlreadyParked when the plate already
// holds an ACTIVE ticket, allocation.ErrLotNotFound for an unknown
// lot, ErrNoCapacity when no slot could be secured.  If the ticket
// insert fails after the slot was reserved, the reservation is rolled
// back so no slot can remain OCCUPIED without a ticket.
func (s *TicketService) Enter(ctx context.Context, plate string, vt model.VehicleType, ownerEmail string, lotID, gateID uint64, gateFloor int) (EntryResult, error) {
    plate = repository.NormalizePlate(plate)

    // Cheap pre-check; the unique key in the ticket store remains the
    // authority when two entries for the same plate race.
    parked, err := s.tickets.HasActiveByPlate(ctx, plate)
    if err != nil {
        return EntryResult{}, err
    }
    if parked {
        return EntryResult{}, repository.ErrAlreadyParked
    }

    vehicle, err := s.vehicles.Upsert(ctx, plate, vt, ownerEmail)
    if err != nil {
        return EntryResult{}, err
    }

    slot, err := s.strategy.Allocate(ctx, lotID, gateID, gateFloor, vt)
    if err != nil {
        return EntryResult{}, err
    }
    if slot == nil {
        return EntryResult{}, ErrNoCapacity
    }

    ticket, err := s.tickets.CreateActive(ctx, vehicle.ID, slot.ID, s.now())
    if err != nil {
        // The slot was already reserved; hand it back before
        // reporting the failure so the reservation cannot leak.
        if freeErr := s.strategy.Free(ctx, slot); freeErr != nil {
            log.Printf("ticket-service: rollback of slot %d failed: %v", slot.ID, freeErr)
        }
        return EntryResult{}, err
    }

    return EntryResult{
        TicketID:  ticket.ID,
        SlotID:    slot.ID,
        Floor:     slot.Floor,
        Number:    slot.Number,
        Plate:     vehicle.Plate,
        EntryTime: ticket.EntryTime,
    }, nil
}

// PreviewAmount returns the fee that would be due right now (or the
// final fee for a closed ticket).  It never mutates anything and is
// safe to call concurrently with PayAndExit.
func (s *TicketService) PreviewAmount(ctx context.Context, ticketID uint64) (int64, error) {
    detail, err := s.tickets.GetDetail(ctx, ticketID)
    if err != nil {
        return 0, err
    }
    return s.pricer.Amount(ctx, detail.Type, s.elapsed(detail.Ticket))
}

// ExitResult reports the outcome of a pay-and-exit attempt.  Outcome
// is "SUCCESS" or "FAILED"; the amount is included either way so a
// declined driver can be told what is due.
type ExitResult struct {
    TicketID    uint64
    AmountCents int64
    Outcome     string
}

// PayAndExit closes a ticket: the exit time is fixed once at the top
// of the call, the fee is computed for it, and the gateway is
// charged.  On a decline the ticket stays ACTIVE and the slot stays
// held so the caller can retry; on success the ticket is persisted
// PAID first and only then is the slot released.  Freeing first could
// hand the slot to a new vehicle while the old ticket still looks
// ACTIVE after a crash.
func (s *TicketService) PayAndExit(ctx context.Context, ticketID uint64) (ExitResult, error) {
    detail, err := s.tickets.GetDetail(ctx, ticketID)
    if err != nil {
        return ExitResult{}, err
    }
    if detail.Ticket.Status != model.TicketStatusActive {
        return ExitResult{}, ErrTicketNotActive
    }

    exit := s.now()
    amount, err := s.pricer.Amount(ctx, detail.Type, exit.Sub(detail.Ticket.EntryTime))
    if err != nil {
        return ExitResult{}, err
    }

    if err := s.charger.Initiate(ctx, ticketID, amount); err != nil {
        if errors.Is(err, payment.ErrDeclined) {
            return ExitResult{TicketID: ticketID, AmountCents: amount, Outcome: "FAILED"}, nil
        }
        return ExitResult{}, err
    }

    if err := s.tickets.MarkPaid(ctx, ticketID, exit); err != nil {
        return ExitResult{}, err
    }
    if err := s.strategy.Free(ctx, &detail.Slot); err != nil {
        // The ticket is paid; a failed release is an operational
        // problem, not a reason to fail the exit.
        log.Printf("ticket-service: release of slot %d failed: %v", detail.Slot.ID, err)
    }
    s.publishPaid(ctx, detail, amount, exit)

    return ExitResult{TicketID: ticketID, AmountCents: amount, Outcome: "SUCCESS"}, nil
}

// Receipt is the read-only projection of a ticket for display.
type Receipt struct {
    TicketID    uint64
    Plate       string
    SlotID      uint64
    Floor       int
    Number      int
    EntryTime   time.Time
    ExitTime    *time.Time
    AmountCents int64
}

// Receipt returns the ticket projection with its amount: the final
// fee for a closed ticket, the running fee for an open one.
func (s *TicketService) Receipt(ctx context.Context, ticketID uint64) (Receipt, error) {
    detail, err := s.tickets.GetDetail(ctx, ticketID)
    if err != nil {
        return Receipt{}, err
    }
    amount, err := s.pricer.Amount(ctx, detail.Type, s.elapsed(detail.Ticket))
    if err != nil {
        return Receipt{}, err
    }
    return Receipt{
        TicketID:    detail.Ticket.ID,
        Plate:       detail.Plate,
        SlotID:      detail.Slot.ID,
        Floor:       detail.Slot.Floor,
        Number:      detail.Slot.Number,
        EntryTime:   detail.Ticket.EntryTime,
        ExitTime:    detail.Ticket.ExitTime,
        AmountCents: amount,
    }, nil
}

// elapsed is the stay duration used for pricing: up to the recorded
// exit for closed tickets, up to now for open ones.
func (s *TicketService) elapsed(t model.Ticket) time.Duration {
    end := s.now()
    if t.ExitTime != nil {
        end = *t.ExitTime
    }
    return end.Sub(t.EntryTime)
}

func (s *TicketService) publishPaid(ctx context.Context, detail repository.TicketDetail, amount int64, exit time.Time) {
    if s.publisher == nil {
        return
    }
    ev := queue.TicketPaidEvent{
        TicketID:    detail.Ticket.ID,
        Plate:       detail.Plate,
        LotID:       detail.Slot.LotID,
        SlotID:      detail.Slot.ID,
        Floor:       detail.Slot.Floor,
        Number:      detail.Slot.Number,
        AmountCents: amount,
        EntryTime:   detail.Ticket.EntryTime.UTC().Format(time.RFC3339),
        ExitTime:    exit.UTC().Format(time.RFC3339),
    }
    if err := s.publisher.PublishTicketPaid(ctx, ev); err != nil {
        log.Printf("ticket-service: publish ticket.paid for %d failed: %v", detail.Ticket.ID, err)
    }
}
