package allocation

import (
    "context"
    "sort"

    "github.com/parkwise/parking/internal/model"
)

// Nearest is the nearest-to-gate strategy.  Candidates are ordered by
// the absolute distance between the slot's floor and the gate's
// floor, so a vehicle entering at floor 2 is offered floor 2 first,
// then floors 1 and 3, and so on.  Ties break by floor ascending and
// then slot number ascending, which keeps the order fully
// deterministic for a given snapshot of free slots.
type Nearest struct {
    store SlotStore
}

// NewNearest returns the nearest-to-gate strategy over the store.
func NewNearest(store SlotStore) *Nearest { return &Nearest{store: store} }

// Allocate picks and reserves the free slot closest to the gate
// floor.  The gate ID itself does not influence ordering, only its
// floor does, but it is part of the contract so that variants which
// do care about the concrete gate can share it.
func (n *Nearest) Allocate(ctx context.Context, lotID, gateID uint64, gateFloor int, vt model.VehicleType) (*model.ParkingSlot, error) {
    if err := checkLot(ctx, n.store, lotID); err != nil {
        return nil, err
    }
    candidates, err := n.store.ListAvailable(ctx, lotID, vt)
    if err != nil {
        return nil, err
    }
    sort.SliceStable(candidates, func(i, j int) bool {
        di, dj := absDistance(candidates[i].Floor, gateFloor), absDistance(candidates[j].Floor, gateFloor)
        if di != dj {
            return di < dj
        }
        if candidates[i].Floor != candidates[j].Floor {
            return candidates[i].Floor < candidates[j].Floor
        }
        return candidates[i].Number < candidates[j].Number
    })
    return reserve(ctx, n.store, candidates)
}

// Free releases a slot held by a closing ticket.
func (n *Nearest) Free(ctx context.Context, slot *model.ParkingSlot) error {
    return n.store.Release(ctx, slot.ID)
}

func absDistance(floor, gateFloor int) int {
    d := floor - gateFloor
    if d < 0 {
        return -d
    }
    return d
}
