package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/parkwise/parking/internal/model"
)

// SlotRepo encapsulates database operations on parking_slots.  The
// status column is the only contended piece of shared state in the
// system, so every occupancy transition goes through MarkOccupied,
// a single conditional UPDATE that either wins the slot atomically
// or reports that another caller got there first.
type SlotRepo struct {
    db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// LotExists reports whether the given parking lot is known.
func (r *SlotRepo) LotExists(ctx context.Context, lotID uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx, `SELECT 1 FROM parking_lots WHERE id = ?`, lotID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// ListAvailable returns all AVAILABLE slots in a lot that match the
// vehicle type.  The result carries no ordering promise; allocation
// strategies order candidates themselves so that selection is
// deterministic and independent of the storage engine.
func (r *SlotRepo) ListAvailable(ctx context.Context, lotID uint64, vt model.VehicleType) ([]model.ParkingSlot, error) {
    const q = `SELECT id, lot_id, floor, number, type, status, version
               FROM parking_slots
               WHERE lot_id = ? AND type = ? AND status = ?`
    rows, err := r.db.QueryContext(ctx, q, lotID, string(vt), model.SlotStatusAvailable)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var slots []model.ParkingSlot
    for rows.Next() {
        var s model.ParkingSlot
        if err := rows.Scan(&s.ID, &s.LotID, &s.Floor, &s.Number, &s.Type, &s.Status, &s.Version); err != nil {
            return nil, err
        }
        slots = append(slots, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return slots, nil
}

// MarkOccupied performs the conditional AVAILABLE→OCCUPIED transition
// for a single slot.  The UPDATE only matches while the slot is still
// AVAILABLE, so under contention exactly one caller observes a row
// count of 1; everyone else sees 0 and must move on to the next
// candidate.  The version column is bumped on every successful flip.
func (r *SlotRepo) MarkOccupied(ctx context.Context, slotID uint64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE parking_slots SET version = version + 1, status = ? WHERE id = ? AND status = ?`,
        model.SlotStatusOccupied, slotID, model.SlotStatusAvailable)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// Release sets a slot back to AVAILABLE.  The write is unconditional:
// only the ticket that holds the slot ever releases it, so release is
// not contended.  The version still advances so that the fencing
// token reflects every status change.
func (r *SlotRepo) Release(ctx context.Context, slotID uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE parking_slots SET version = version + 1, status = ? WHERE id = ?`,
        model.SlotStatusAvailable, slotID)
    return err
}

// GetByID loads a single slot.  It returns sql.ErrNoRows when the
// slot does not exist.
func (r *SlotRepo) GetByID(ctx context.Context, slotID uint64) (model.ParkingSlot, error) {
    const q = `SELECT id, lot_id, floor, number, type, status, version
               FROM parking_slots WHERE id = ?`
    var s model.ParkingSlot
    err := r.db.QueryRowContext(ctx, q, slotID).Scan(&s.ID, &s.LotID, &s.Floor, &s.Number, &s.Type, &s.Status, &s.Version)
    return s, err
}

// Create inserts a new slot for the admin flow.  The unique key on
// (lot_id, floor, number) turns concurrent duplicate creates into
// ErrSlotExists instead of double rows.
func (r *SlotRepo) Create(ctx context.Context, lotID uint64, floor, number int, vt model.VehicleType) (model.ParkingSlot, error) {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO parking_slots (lot_id, floor, number, type, status, version) VALUES (?, ?, ?, ?, ?, 0)`,
        lotID, floor, number, string(vt), model.SlotStatusAvailable)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return model.ParkingSlot{}, ErrSlotExists
        }
        return model.ParkingSlot{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.ParkingSlot{}, err
    }
    return model.ParkingSlot{
        ID:     uint64(id),
        LotID:  lotID,
        Floor:  floor,
        Number: number,
        Type:   vt,
        Status: model.SlotStatusAvailable,
    }, nil
}

// ListByLot returns every slot of a lot ordered by floor then number,
// for the admin listing endpoint.
func (r *SlotRepo) ListByLot(ctx context.Context, lotID uint64) ([]model.ParkingSlot, error) {
    const q = `SELECT id, lot_id, floor, number, type, status, version
               FROM parking_slots WHERE lot_id = ?
               ORDER BY floor, number`
    rows, err := r.db.QueryContext(ctx, q, lotID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var slots []model.ParkingSlot
    for rows.Next() {
        var s model.ParkingSlot
        if err := rows.Scan(&s.ID, &s.LotID, &s.Floor, &s.Number, &s.Type, &s.Status, &s.Version); err != nil {
            return nil, err
        }
        slots = append(slots, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return slots, nil
}

// Delete removes a slot by ID.  Deleting an occupied slot is refused
// so that an active ticket never points at a missing slot.
func (r *SlotRepo) Delete(ctx context.Context, slotID uint64) error {
    res, err := r.db.ExecContext(ctx,
        `DELETE FROM parking_slots WHERE id = ? AND status = ?`,
        slotID, model.SlotStatusAvailable)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
