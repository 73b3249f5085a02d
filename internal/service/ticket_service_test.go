package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/parkwise/parking/internal/allocation"
	"github.com/parkwise/parking/internal/model"
	"github.com/parkwise/parking/internal/payment"
	"github.com/parkwise/parking/internal/pricing"
	"github.com/parkwise/parking/internal/queue"
	"github.com/parkwise/parking/internal/repository"
)

// memStore is an in-memory implementation of VehicleStore,
// TicketStore and allocation.SlotStore.  A single mutex guards all
// state so every operation is as atomic as its SQL counterpart: the
// slot compare-and-set, the vehicle upsert and the one-active-ticket
// unique key all hold under concurrent callers.
type memStore struct {
	mu           sync.Mutex
	lots         map[uint64]bool
	slots        map[uint64]*model.ParkingSlot
	vehicles     map[string]model.Vehicle
	vehiclesByID map[uint64]model.Vehicle
	tickets      map[uint64]*model.Ticket
	nextVehicle  uint64
	nextTicket   uint64

	failCreate error // when set, CreateActive fails with this error
}

func newMemStore(lotID uint64, slots ...model.ParkingSlot) *memStore {
	m := &memStore{
		lots:         map[uint64]bool{lotID: true},
		slots:        make(map[uint64]*model.ParkingSlot),
		vehicles:     make(map[string]model.Vehicle),
		vehiclesByID: make(map[uint64]model.Vehicle),
		tickets:      make(map[uint64]*model.Ticket),
	}
	for i := range slots {
		s := slots[i]
		if s.Status == "" {
			s.Status = model.SlotStatusAvailable
		}
		m.slots[s.ID] = &s
	}
	return m
}

func (m *memStore) LotExists(ctx context.Context, lotID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lots[lotID], nil
}

func (m *memStore) ListAvailable(ctx context.Context, lotID uint64, vt model.VehicleType) ([]model.ParkingSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ParkingSlot
	for _, s := range m.slots {
		if s.LotID == lotID && s.Type == vt && s.Status == model.SlotStatusAvailable {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) MarkOccupied(ctx context.Context, slotID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok || s.Status != model.SlotStatusAvailable {
		return false, nil
	}
	s.Status = model.SlotStatusOccupied
	s.Version++
	return true, nil
}

func (m *memStore) Release(ctx context.Context, slotID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[slotID]; ok {
		s.Status = model.SlotStatusAvailable
		s.Version++
	}
	return nil
}

func (m *memStore) Upsert(ctx context.Context, plate string, vt model.VehicleType, ownerEmail string) (model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vehicles[plate]; ok {
		return v, nil
	}
	m.nextVehicle++
	v := model.Vehicle{ID: m.nextVehicle, Plate: plate, Type: vt, OwnerEmail: ownerEmail}
	m.vehicles[plate] = v
	m.vehiclesByID[v.ID] = v
	return v, nil
}

func (m *memStore) CreateActive(ctx context.Context, vehicleID, slotID uint64, entry time.Time) (model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return model.Ticket{}, m.failCreate
	}
	for _, t := range m.tickets {
		if t.VehicleID == vehicleID && t.Status == model.TicketStatusActive {
			return model.Ticket{}, repository.ErrAlreadyParked
		}
	}
	m.nextTicket++
	t := &model.Ticket{
		ID:        m.nextTicket,
		VehicleID: vehicleID,
		SlotID:    slotID,
		EntryTime: entry,
		Status:    model.TicketStatusActive,
	}
	m.tickets[t.ID] = t
	return *t, nil
}

func (m *memStore) HasActiveByPlate(ctx context.Context, plate string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[plate]
	if !ok {
		return false, nil
	}
	for _, t := range m.tickets {
		if t.VehicleID == v.ID && t.Status == model.TicketStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetDetail(ctx context.Context, ticketID uint64) (repository.TicketDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok {
		return repository.TicketDetail{}, repository.ErrTicketNotFound
	}
	v := m.vehiclesByID[t.VehicleID]
	s := m.slots[t.SlotID]
	return repository.TicketDetail{Ticket: *t, Plate: v.Plate, Type: v.Type, Slot: *s}, nil
}

func (m *memStore) MarkPaid(ctx context.Context, ticketID uint64, exit time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok || t.Status != model.TicketStatusActive {
		return repository.ErrTicketNotFound
	}
	e := exit
	t.Status = model.TicketStatusPaid
	t.ExitTime = &e
	return nil
}

func (m *memStore) slotStatus(slotID uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[slotID].Status
}

func (m *memStore) ticketStatus(ticketID uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[ticketID].Status
}

// noRules makes the pricing engine use its built-in defaults.
type noRules struct{}

func (noRules) RuleFor(ctx context.Context, vt model.VehicleType) (model.PricingRule, bool, error) {
	return model.PricingRule{}, false, nil
}

// toggleGateway can be flipped between accept and decline per test.
type toggleGateway struct {
	mu      sync.Mutex
	decline bool
}

func (g *toggleGateway) Charge(ctx context.Context, ticketID uint64, amountCents int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.decline {
		return payment.ErrDeclined
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TicketPaidEvent
}

func (p *recordingPublisher) PublishTicketPaid(ctx context.Context, ev queue.TicketPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type nullRecords struct{}

func (nullRecords) Upsert(ctx context.Context, ticketID uint64, amountCents int64, status string, ts time.Time) error {
	return nil
}

func slot(id uint64, floor, number int) model.ParkingSlot {
	return model.ParkingSlot{ID: id, LotID: 1, Floor: floor, Number: number, Type: model.VehicleTypeCar}
}

func newTestService(store *memStore, gw *toggleGateway, pub *recordingPublisher) *TicketService {
	var publisher Publisher
	if pub != nil {
		publisher = pub
	}
	return NewTicketService(
		store,
		store,
		allocation.NewNearest(store),
		pricing.NewEngine(noRules{}),
		payment.NewService(nullRecords{}, gw),
		publisher,
	)
}

func TestEnter(t *testing.T) {
	t.Parallel()

	t.Run("happy path reserves slot and opens ticket", func(t *testing.T) {
		store := newMemStore(1, slot(10, 0, 1))
		svc := newTestService(store, &toggleGateway{}, nil)

		res, err := svc.Enter(context.Background(), " ka01ab1234 ", model.VehicleTypeCar, "o@example.com", 1, 1, 0)
		if err != nil {
			t.Fatalf("Enter: %v", err)
		}
		if res.Plate != "KA01AB1234" {
			t.Fatalf("plate not normalized: %q", res.Plate)
		}
		if res.SlotID != 10 || res.Floor != 0 || res.Number != 1 {
			t.Fatalf("unexpected slot in result: %+v", res)
		}
		if got := store.slotStatus(10); got != model.SlotStatusOccupied {
			t.Fatalf("slot status = %s, want OCCUPIED", got)
		}
		if got := store.ticketStatus(res.TicketID); got != model.TicketStatusActive {
			t.Fatalf("ticket status = %s, want ACTIVE", got)
		}
	})

	t.Run("duplicate active plate is rejected", func(t *testing.T) {
		store := newMemStore(1, slot(10, 0, 1), slot(11, 0, 2))
		svc := newTestService(store, &toggleGateway{}, nil)

		if _, err := svc.Enter(context.Background(), "KA01AB1234", model.VehicleTypeCar, "o@example.com", 1, 1, 0); err != nil {
			t.Fatalf("first Enter: %v", err)
		}
		_, err := svc.Enter(context.Background(), "ka01ab1234", model.VehicleTypeCar, "o@example.com", 1, 1, 0)
		if !errors.Is(err, repository.ErrAlreadyParked) {
			t.Fatalf("expected ErrAlreadyParked, got %v", err)
		}
		if got := store.slotStatus(11); got != model.SlotStatusAvailable {
			t.Fatalf("second slot must stay AVAILABLE, got %s", got)
		}
	})

	t.Run("full lot reports no capacity", func(t *testing.T) {
		store := newMemStore(1, slot(10, 0, 1))
		svc := newTestService(store, &toggleGateway{}, nil)

		if _, err := svc.Enter(context.Background(), "AAA", model.VehicleTypeCar, "a@example.com", 1, 1, 0); err != nil {
			t.Fatalf("first Enter: %v", err)
		}
		_, err := svc.Enter(context.Background(), "BBB", model.VehicleTypeCar, "b@example.com", 1, 1, 0)
		if !errors.Is(err, ErrNoCapacity) {
			t.Fatalf("expected ErrNoCapacity, got %v", err)
		}
	})

	t.Run("unknown lot", func(t *testing.T) {
		store := newMemStore(1, slot(10, 0, 1))
		svc := newTestService(store, &toggleGateway{}, nil)

		_, err := svc.Enter(context.Background(), "AAA", model.VehicleTypeCar, "a@example.com", 42, 1, 0)
		if !errors.Is(err, allocation.ErrLotNotFound) {
			t.Fatalf("expected ErrLotNotFound, got %v", err)
		}
	})

	t.Run("ticket create failure rolls the reservation back", func(t *testing.T) {
		store := newMemStore(1, slot(10, 0, 1))
		svc := newTestService(store, &toggleGateway{}, nil)

		boom := errors.New("insert failed")
		store.failCreate = boom
		if _, err := svc.Enter(context.Background(), "AAA", model.VehicleTypeCar, "a@example.com", 1, 1, 0); !errors.Is(err, boom) {
			t.Fatalf("expected insert failure, got %v", err)
		}
		if got := store.slotStatus(10); got != model.SlotStatusAvailable {
			t.Fatalf("slot must be rolled back to AVAILABLE, got %s", got)
		}

		// The freed slot is reusable by the next entry.
		store.failCreate = nil
		res, err := svc.Enter(context.Background(), "AAA", model.VehicleTypeCar, "a@example.com", 1, 1, 0)
		if err != nil {
			t.Fatalf("Enter after rollback: %v", err)
		}
		if res.SlotID != 10 {
			t.Fatalf("expected reuse of slot 10, got %d", res.SlotID)
		}
	})
}

func TestEnter_ConcurrentContention(t *testing.T) {
	t.Parallel()

	// K slots, N > K concurrent entries with distinct plates: exactly
	// K succeed, the rest see NO_CAPACITY, and no slot is shared.
	const k, n = 4, 32
	slots := make([]model.ParkingSlot, 0, k)
	for i := 0; i < k; i++ {
		slots = append(slots, slot(uint64(10+i), i, 1))
	}
	store := newMemStore(1, slots...)
	svc := newTestService(store, &toggleGateway{}, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		bySlot   = make(map[uint64]int)
		noCap    int
		failures []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Enter(context.Background(), fmt.Sprintf("PLATE%02d", i), model.VehicleTypeCar, "x@example.com", 1, 1, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				bySlot[res.SlotID]++
			case errors.Is(err, ErrNoCapacity):
				noCap++
			default:
				failures = append(failures, err)
			}
		}(i)
	}
	wg.Wait()

	if len(failures) > 0 {
		t.Fatalf("unexpected errors: %v", failures)
	}
	if len(bySlot) != k {
		t.Fatalf("expected %d slots handed out, got %d", k, len(bySlot))
	}
	for id, c := range bySlot {
		if c != 1 {
			t.Fatalf("slot %d handed out %d times", id, c)
		}
	}
	if noCap != n-k {
		t.Fatalf("expected %d NO_CAPACITY results, got %d", n-k, noCap)
	}
}

func TestEnter_ConcurrentSamePlate(t *testing.T) {
	t.Parallel()

	store := newMemStore(1, slot(10, 0, 1), slot(11, 0, 2), slot(12, 0, 3))
	svc := newTestService(store, &toggleGateway{}, nil)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		dupes   int
		unexpec []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Enter(context.Background(), "KA01AB1234", model.VehicleTypeCar, "o@example.com", 1, 1, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, repository.ErrAlreadyParked):
				dupes++
			default:
				unexpec = append(unexpec, err)
			}
		}()
	}
	wg.Wait()

	if len(unexpec) > 0 {
		t.Fatalf("unexpected errors: %v", unexpec)
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful entry for the plate, got %d", wins)
	}
	if dupes != n-1 {
		t.Fatalf("expected %d ALREADY_PARKED results, got %d", n-1, dupes)
	}

	// Losing entries must not leak reservations: exactly one slot
	// occupied.
	occupied := 0
	for _, id := range []uint64{10, 11, 12} {
		if store.slotStatus(id) == model.SlotStatusOccupied {
			occupied++
		}
	}
	if occupied != 1 {
		t.Fatalf("expected exactly one occupied slot, got %d", occupied)
	}
}

func TestPayAndExit(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	setup := func(gw *toggleGateway, pub *recordingPublisher) (*TicketService, *memStore, uint64) {
		store := newMemStore(1, slot(10, 0, 1))
		svc := newTestService(store, gw, pub)
		svc.now = func() time.Time { return entry }
		res, err := svc.Enter(context.Background(), "KA01AB1234", model.VehicleTypeCar, "o@example.com", 1, 1, 0)
		if err != nil {
			panic(err)
		}
		return svc, store, res.TicketID
	}

	t.Run("success freezes the fee and frees the slot", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc, store, ticketID := setup(&toggleGateway{}, pub)

		// 3h01m after entry: 61 billable minutes -> 2 hours at the
		// default CAR rate of 2000 cents.
		svc.now = func() time.Time { return entry.Add(3*time.Hour + time.Minute) }

		preview, err := svc.PreviewAmount(context.Background(), ticketID)
		if err != nil {
			t.Fatalf("PreviewAmount: %v", err)
		}
		if preview != 4000 {
			t.Fatalf("preview = %d, want 4000", preview)
		}

		res, err := svc.PayAndExit(context.Background(), ticketID)
		if err != nil {
			t.Fatalf("PayAndExit: %v", err)
		}
		if res.Outcome != "SUCCESS" || res.AmountCents != 4000 {
			t.Fatalf("exit result = %+v, want SUCCESS for 4000", res)
		}
		if got := store.ticketStatus(ticketID); got != model.TicketStatusPaid {
			t.Fatalf("ticket status = %s, want PAID", got)
		}
		if got := store.slotStatus(10); got != model.SlotStatusAvailable {
			t.Fatalf("slot status = %s, want AVAILABLE", got)
		}
		if len(pub.events) != 1 || pub.events[0].AmountCents != 4000 {
			t.Fatalf("expected one ticket.paid event for 4000 cents, got %+v", pub.events)
		}

		// The receipt is frozen at the recorded exit time even as the
		// clock keeps moving.
		svc.now = func() time.Time { return entry.Add(48 * time.Hour) }
		rcpt, err := svc.Receipt(context.Background(), ticketID)
		if err != nil {
			t.Fatalf("Receipt: %v", err)
		}
		if rcpt.AmountCents != 4000 {
			t.Fatalf("receipt amount = %d, want the charged 4000", rcpt.AmountCents)
		}
		if rcpt.ExitTime == nil || !rcpt.ExitTime.Equal(entry.Add(3*time.Hour+time.Minute)) {
			t.Fatalf("receipt exit time = %v, want the fixed exit instant", rcpt.ExitTime)
		}
	})

	t.Run("decline keeps the ticket active and the slot held", func(t *testing.T) {
		gw := &toggleGateway{decline: true}
		svc, store, ticketID := setup(gw, nil)
		svc.now = func() time.Time { return entry.Add(3 * time.Hour) }

		res, err := svc.PayAndExit(context.Background(), ticketID)
		if err != nil {
			t.Fatalf("PayAndExit: %v", err)
		}
		if res.Outcome != "FAILED" || res.AmountCents != 2000 {
			t.Fatalf("exit result = %+v, want FAILED with the amount due", res)
		}
		if got := store.ticketStatus(ticketID); got != model.TicketStatusActive {
			t.Fatalf("ticket status = %s, want ACTIVE (retryable)", got)
		}
		if got := store.slotStatus(10); got != model.SlotStatusOccupied {
			t.Fatalf("slot status = %s, slot must not be released on failure", got)
		}

		// Retry after the gateway recovers.
		gw.mu.Lock()
		gw.decline = false
		gw.mu.Unlock()
		res, err = svc.PayAndExit(context.Background(), ticketID)
		if err != nil || res.Outcome != "SUCCESS" {
			t.Fatalf("retry = %+v err=%v, want SUCCESS", res, err)
		}
	})

	t.Run("second exit on a paid ticket is a benign error", func(t *testing.T) {
		svc, store, ticketID := setup(&toggleGateway{}, nil)
		svc.now = func() time.Time { return entry.Add(time.Hour) }

		if _, err := svc.PayAndExit(context.Background(), ticketID); err != nil {
			t.Fatalf("first exit: %v", err)
		}
		versionAfterFirst := func() uint64 {
			store.mu.Lock()
			defer store.mu.Unlock()
			return store.slots[10].Version
		}()

		_, err := svc.PayAndExit(context.Background(), ticketID)
		if !errors.Is(err, ErrTicketNotActive) {
			t.Fatalf("expected ErrTicketNotActive, got %v", err)
		}
		if got := func() uint64 {
			store.mu.Lock()
			defer store.mu.Unlock()
			return store.slots[10].Version
		}(); got != versionAfterFirst {
			t.Fatalf("slot version moved on the no-op exit: %d -> %d", versionAfterFirst, got)
		}
	})

	t.Run("unknown ticket", func(t *testing.T) {
		svc, _, _ := setup(&toggleGateway{}, nil)
		if _, err := svc.PayAndExit(context.Background(), 999); !errors.Is(err, repository.ErrTicketNotFound) {
			t.Fatalf("expected ErrTicketNotFound, got %v", err)
		}
		if _, err := svc.PreviewAmount(context.Background(), 999); !errors.Is(err, repository.ErrTicketNotFound) {
			t.Fatalf("expected ErrTicketNotFound from preview, got %v", err)
		}
	})
}

func TestReceiptMatchesPreviewWhileParked(t *testing.T) {
	t.Parallel()

	entry := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore(1, slot(10, 0, 1))
	svc := newTestService(store, &toggleGateway{}, nil)
	svc.now = func() time.Time { return entry }

	res, err := svc.Enter(context.Background(), "KA01AB1234", model.VehicleTypeCar, "o@example.com", 1, 1, 0)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}

	svc.now = func() time.Time { return entry.Add(4 * time.Hour) }
	preview, err := svc.PreviewAmount(context.Background(), res.TicketID)
	if err != nil {
		t.Fatalf("PreviewAmount: %v", err)
	}
	rcpt, err := svc.Receipt(context.Background(), res.TicketID)
	if err != nil {
		t.Fatalf("Receipt: %v", err)
	}
	if preview != rcpt.AmountCents {
		t.Fatalf("preview %d != receipt %d at the same instant", preview, rcpt.AmountCents)
	}
	if rcpt.ExitTime != nil {
		t.Fatalf("open ticket must have no exit time, got %v", rcpt.ExitTime)
	}
}
