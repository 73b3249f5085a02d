package allocation

import (
    "context"
    "sort"

    "github.com/parkwise/parking/internal/model"
)

// LevelWise fills the lot floor by floor from the bottom up.
// Candidates are ordered by floor ascending and slot number
// ascending regardless of which gate the vehicle entered through.
type LevelWise struct {
    store SlotStore
}

// NewLevelWise returns the level-wise strategy over the store.
func NewLevelWise(store SlotStore) *LevelWise { return &LevelWise{store: store} }

// Allocate picks and reserves the lowest free slot in the lot.
func (l *LevelWise) Allocate(ctx context.Context, lotID, gateID uint64, gateFloor int, vt model.VehicleType) (*model.ParkingSlot, error) {
    if err := checkLot(ctx, l.store, lotID); err != nil {
        return nil, err
    }
    candidates, err := l.store.ListAvailable(ctx, lotID, vt)
    if err != nil {
        return nil, err
    }
    sort.SliceStable(candidates, func(i, j int) bool {
        if candidates[i].Floor != candidates[j].Floor {
            return candidates[i].Floor < candidates[j].Floor
        }
        return candidates[i].Number < candidates[j].Number
    })
    return reserve(ctx, l.store, candidates)
}

// Free releases a slot held by a closing ticket.
func (l *LevelWise) Free(ctx context.Context, slot *model.ParkingSlot) error {
    return l.store.Release(ctx, slot.ID)
}
