package repository

import (
    "context"
    "database/sql"

    "github.com/parkwise/parking/internal/model"
)

// LotRepo provides access to parking lots and their gates.  Both are
// created by the admin flow and read by the allocation core.
type LotRepo struct {
    db *sql.DB
}

// NewLotRepo returns a LotRepo bound to the given database.
func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

// Create inserts a new parking lot.
func (r *LotRepo) Create(ctx context.Context, location string, floors int) (model.ParkingLot, error) {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO parking_lots (location, floors) VALUES (?, ?)`, location, floors)
    if err != nil {
        return model.ParkingLot{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.ParkingLot{}, err
    }
    return model.ParkingLot{ID: uint64(id), Location: location, Floors: floors}, nil
}

// GetByID loads a lot.  ErrLotNotFound is returned when it is absent.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (model.ParkingLot, error) {
    var lot model.ParkingLot
    err := r.db.QueryRowContext(ctx,
        `SELECT id, location, floors FROM parking_lots WHERE id = ?`, id).
        Scan(&lot.ID, &lot.Location, &lot.Floors)
    if err == sql.ErrNoRows {
        return model.ParkingLot{}, ErrLotNotFound
    }
    return lot, err
}

// List returns all lots ordered by ID.
func (r *LotRepo) List(ctx context.Context) ([]model.ParkingLot, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT id, location, floors FROM parking_lots ORDER BY id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var lots []model.ParkingLot
    for rows.Next() {
        var lot model.ParkingLot
        if err := rows.Scan(&lot.ID, &lot.Location, &lot.Floors); err != nil {
            return nil, err
        }
        lots = append(lots, lot)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return lots, nil
}

// CreateGate inserts a gate for a lot.  The lot must exist; a missing
// lot surfaces as ErrLotNotFound so the handler can map it to a 404.
func (r *LotRepo) CreateGate(ctx context.Context, lotID uint64, floor int, gateType string) (model.Gate, error) {
    if _, err := r.GetByID(ctx, lotID); err != nil {
        return model.Gate{}, err
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO gates (lot_id, floor, type) VALUES (?, ?, ?)`, lotID, floor, gateType)
    if err != nil {
        return model.Gate{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.Gate{}, err
    }
    return model.Gate{ID: uint64(id), LotID: lotID, Floor: floor, Type: gateType}, nil
}

// GateByID loads a gate.  It returns sql.ErrNoRows when absent.
func (r *LotRepo) GateByID(ctx context.Context, id uint64) (model.Gate, error) {
    var g model.Gate
    err := r.db.QueryRowContext(ctx,
        `SELECT id, lot_id, floor, type FROM gates WHERE id = ?`, id).
        Scan(&g.ID, &g.LotID, &g.Floor, &g.Type)
    return g, err
}
