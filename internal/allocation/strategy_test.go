package allocation

import (
	"context"
	"sync"
	"testing"

	"github.com/parkwise/parking/internal/model"
)

// fakeSlotStore is an in-memory SlotStore.  MarkOccupied is guarded
// by a mutex so that the compare-and-set is atomic, mirroring the
// conditional UPDATE the SQL repository issues.
type fakeSlotStore struct {
	mu    sync.Mutex
	lots  map[uint64]bool
	slots map[uint64]*model.ParkingSlot
}

func newFakeSlotStore(lotID uint64, slots []model.ParkingSlot) *fakeSlotStore {
	f := &fakeSlotStore{
		lots:  map[uint64]bool{lotID: true},
		slots: make(map[uint64]*model.ParkingSlot, len(slots)),
	}
	for i := range slots {
		s := slots[i]
		if s.Status == "" {
			s.Status = model.SlotStatusAvailable
		}
		f.slots[s.ID] = &s
	}
	return f
}

func (f *fakeSlotStore) LotExists(ctx context.Context, lotID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lots[lotID], nil
}

func (f *fakeSlotStore) ListAvailable(ctx context.Context, lotID uint64, vt model.VehicleType) ([]model.ParkingSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ParkingSlot
	for _, s := range f.slots {
		if s.LotID == lotID && s.Type == vt && s.Status == model.SlotStatusAvailable {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSlotStore) MarkOccupied(ctx context.Context, slotID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotID]
	if !ok || s.Status != model.SlotStatusAvailable {
		return false, nil
	}
	s.Status = model.SlotStatusOccupied
	s.Version++
	return true, nil
}

func (f *fakeSlotStore) Release(ctx context.Context, slotID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.slots[slotID]; ok {
		s.Status = model.SlotStatusAvailable
		s.Version++
	}
	return nil
}

func carSlot(id, lotID uint64, floor, number int) model.ParkingSlot {
	return model.ParkingSlot{ID: id, LotID: lotID, Floor: floor, Number: number, Type: model.VehicleTypeCar}
}

func TestNearest_SelectionOrder(t *testing.T) {
	t.Parallel()

	// Slots on floors 0, 1, 2 and 5; gate on floor 2.  Expected
	// order of allocation: 2, 1, 0, 5 (distance, then floor).
	store := newFakeSlotStore(1, []model.ParkingSlot{
		carSlot(10, 1, 0, 1),
		carSlot(11, 1, 1, 1),
		carSlot(12, 1, 2, 1),
		carSlot(13, 1, 5, 1),
	})
	strat := NewNearest(store)

	var gotFloors []int
	for i := 0; i < 4; i++ {
		slot, err := strat.Allocate(context.Background(), 1, 7, 2, model.VehicleTypeCar)
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		if slot == nil {
			t.Fatalf("allocate %d: expected a slot, lot should not be full yet", i)
		}
		gotFloors = append(gotFloors, slot.Floor)
	}
	want := []int{2, 1, 0, 5}
	for i := range want {
		if gotFloors[i] != want[i] {
			t.Fatalf("selection order = %v, want %v", gotFloors, want)
		}
	}

	// Lot is now full.
	slot, err := strat.Allocate(context.Background(), 1, 7, 2, model.VehicleTypeCar)
	if err != nil {
		t.Fatalf("allocate on full lot: %v", err)
	}
	if slot != nil {
		t.Fatalf("expected no capacity, got slot %d", slot.ID)
	}
}

func TestNearest_TieBreaksByFloorThenNumber(t *testing.T) {
	t.Parallel()

	// Floors 1 and 3 are equidistant from gate floor 2; floor 1 must
	// win, and within a floor the lower number must win.
	store := newFakeSlotStore(1, []model.ParkingSlot{
		carSlot(20, 1, 3, 1),
		carSlot(21, 1, 1, 2),
		carSlot(22, 1, 1, 1),
	})
	strat := NewNearest(store)

	first, err := strat.Allocate(context.Background(), 1, 7, 2, model.VehicleTypeCar)
	if err != nil || first == nil {
		t.Fatalf("allocate: slot=%v err=%v", first, err)
	}
	if first.Floor != 1 || first.Number != 1 {
		t.Fatalf("first allocation = floor %d number %d, want floor 1 number 1", first.Floor, first.Number)
	}
}

func TestLevelWise_SelectionOrder(t *testing.T) {
	t.Parallel()

	// Slots on floors 2, 0 and 1; expect allocation bottom-up
	// regardless of the gate floor.
	store := newFakeSlotStore(1, []model.ParkingSlot{
		carSlot(30, 1, 2, 1),
		carSlot(31, 1, 0, 1),
		carSlot(32, 1, 1, 1),
	})
	strat := NewLevelWise(store)

	var gotFloors []int
	for i := 0; i < 3; i++ {
		slot, err := strat.Allocate(context.Background(), 1, 7, 2, model.VehicleTypeCar)
		if err != nil || slot == nil {
			t.Fatalf("allocate %d: slot=%v err=%v", i, slot, err)
		}
		gotFloors = append(gotFloors, slot.Floor)
	}
	want := []int{0, 1, 2}
	for i := range want {
		if gotFloors[i] != want[i] {
			t.Fatalf("selection order = %v, want %v", gotFloors, want)
		}
	}
}

func TestAllocate_UnknownLot(t *testing.T) {
	t.Parallel()

	store := newFakeSlotStore(1, nil)
	for name, strat := range map[string]Strategy{
		"nearest":   NewNearest(store),
		"levelwise": NewLevelWise(store),
	} {
		if _, err := strat.Allocate(context.Background(), 99, 1, 0, model.VehicleTypeCar); err != ErrLotNotFound {
			t.Fatalf("%s: expected ErrLotNotFound, got %v", name, err)
		}
	}
}

func TestAllocate_SkipsLostCandidates(t *testing.T) {
	t.Parallel()

	// Simulate losing the race on the best candidate: mark it
	// occupied between listing and reservation by pre-occupying it
	// through a second strategy sharing the store snapshot.
	store := newFakeSlotStore(1, []model.ParkingSlot{
		carSlot(40, 1, 0, 1),
		carSlot(41, 1, 0, 2),
	})
	// Another caller wins slot 40 first.
	if won, _ := store.MarkOccupied(context.Background(), 40); !won {
		t.Fatal("setup: expected to occupy slot 40")
	}

	slot, err := NewLevelWise(store).Allocate(context.Background(), 1, 1, 0, model.VehicleTypeCar)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if slot == nil || slot.ID != 41 {
		t.Fatalf("expected fallback to slot 41, got %v", slot)
	}
}

func TestAllocate_ConcurrentContention(t *testing.T) {
	t.Parallel()

	// K available slots, N concurrent enters with N > K: exactly K
	// must win and no slot may be handed out twice.
	const k, n = 5, 40
	slots := make([]model.ParkingSlot, 0, k)
	for i := 0; i < k; i++ {
		slots = append(slots, carSlot(uint64(100+i), 1, i%3, i+1))
	}
	store := newFakeSlotStore(1, slots)

	for name, strat := range map[string]Strategy{
		"nearest":   NewNearest(store),
		"levelwise": NewLevelWise(store),
	} {
		t.Run(name, func(t *testing.T) {
			// Reset all slots before each variant.
			for _, s := range slots {
				if err := store.Release(context.Background(), s.ID); err != nil {
					t.Fatalf("reset: %v", err)
				}
			}

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins = make(map[uint64]int)
				none int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					slot, err := strat.Allocate(context.Background(), 1, 1, 0, model.VehicleTypeCar)
					if err != nil {
						t.Errorf("allocate: %v", err)
						return
					}
					mu.Lock()
					defer mu.Unlock()
					if slot == nil {
						none++
					} else {
						wins[slot.ID]++
					}
				}()
			}
			wg.Wait()

			if len(wins) != k {
				t.Fatalf("expected %d distinct slots won, got %d", k, len(wins))
			}
			for id, c := range wins {
				if c != 1 {
					t.Fatalf("slot %d was allocated %d times", id, c)
				}
			}
			if none != n-k {
				t.Fatalf("expected %d no-capacity results, got %d", n-k, none)
			}
		})
	}
}

func TestSelect_FallsBackToNearest(t *testing.T) {
	t.Parallel()

	store := newFakeSlotStore(1, nil)
	if _, ok := Select("bogus", store).(*Nearest); !ok {
		t.Fatal("unknown strategy name should fall back to nearest")
	}
	if _, ok := Select(StrategyLevelWise, store).(*LevelWise); !ok {
		t.Fatal("levelwise should select the level-wise strategy")
	}
}
