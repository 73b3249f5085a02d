// Package allocation implements the pluggable slot allocation
// strategies.  A strategy decides in which order AVAILABLE slots are
// offered to an arriving vehicle and performs the reservation itself
// through the store's conditional status transition.  Strategies are
// interchangeable: apart from selection order, every variant gives
// the same guarantee that a slot is handed to at most one vehicle,
// and a lost race is recovered by moving to the next candidate rather
// than surfacing as an error.
package allocation

import (
    "context"
    "errors"
    "log"

    "github.com/parkwise/parking/internal/model"
)

// ErrLotNotFound is returned by Allocate when the requested lot does
// not exist.  A lot with no free slots is not an error; it yields a
// nil slot instead.
var ErrLotNotFound = errors.New("parking lot not found")

// SlotStore is the slice of the slot repository a strategy needs.
// MarkOccupied must be atomic: it flips AVAILABLE→OCCUPIED only when
// the slot is still AVAILABLE and reports whether this caller won.
// Nothing here holds a lock across calls, so unrelated slots stay
// reservable while one caller walks its candidate list.
type SlotStore interface {
    LotExists(ctx context.Context, lotID uint64) (bool, error)
    ListAvailable(ctx context.Context, lotID uint64, vt model.VehicleType) ([]model.ParkingSlot, error)
    MarkOccupied(ctx context.Context, slotID uint64) (bool, error)
    Release(ctx context.Context, slotID uint64) error
}

// Strategy is the capability contract for slot allocation.  Allocate
// returns the slot now OCCUPIED for the caller, or nil when the lot
// has no securable slot for the vehicle type (a normal negative
// result, not an error).  ErrLotNotFound from the repository layer is
// passed through for unknown lots.  Free releases a slot held by a
// closing ticket.
type Strategy interface {
    Allocate(ctx context.Context, lotID, gateID uint64, gateFloor int, vt model.VehicleType) (*model.ParkingSlot, error)
    Free(ctx context.Context, slot *model.ParkingSlot) error
}

// Strategy names accepted in configuration.
const (
    StrategyNearest   = "nearest"
    StrategyLevelWise = "levelwise"
)

// Select returns the strategy registered under name.  Unknown names
// fall back to the nearest-to-gate variant, which is the documented
// default; the fallback is logged so a typo in configuration does not
// go unnoticed.
func Select(name string, store SlotStore) Strategy {
    switch name {
    case StrategyNearest:
        return NewNearest(store)
    case StrategyLevelWise:
        return NewLevelWise(store)
    default:
        log.Printf("allocation: unknown strategy %q, falling back to %s", name, StrategyNearest)
        return NewNearest(store)
    }
}

// reserve walks an ordered candidate list and attempts the
// conditional transition on each slot in turn.  A candidate lost to a
// concurrent caller is simply skipped; when the list is exhausted the
// lot genuinely has no capacity left for this request.  The list is
// never re-queried; each enter call gets one pass over one snapshot.
func reserve(ctx context.Context, store SlotStore, candidates []model.ParkingSlot) (*model.ParkingSlot, error) {
    for i := range candidates {
        won, err := store.MarkOccupied(ctx, candidates[i].ID)
        if err != nil {
            return nil, err
        }
        if won {
            s := candidates[i]
            s.Status = model.SlotStatusOccupied
            s.Version++
            return &s, nil
        }
    }
    return nil, nil
}

// checkLot verifies that the lot exists before scanning candidates so
// that an unknown lot is reported as not-found rather than as an
// empty lot.
func checkLot(ctx context.Context, store SlotStore, lotID uint64) error {
    ok, err := store.LotExists(ctx, lotID)
    if err != nil {
        return err
    }
    if !ok {
        return ErrLotNotFound
    }
    return nil
}
