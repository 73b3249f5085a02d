package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/parkwise/parking/internal/model"
)

// VehicleRepo provides lookup-or-create access to the vehicles table.
// Vehicles are effectively append-only: they are created on first
// entry and never mutated by this service.
type VehicleRepo struct {
    db *sql.DB
}

// NewVehicleRepo returns a VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// NormalizePlate upper-cases and trims a license plate so that the
// same physical plate always maps to the same row regardless of how
// the gate camera or operator spelled it.
func NormalizePlate(plate string) string {
    return strings.ToUpper(strings.TrimSpace(plate))
}

// Upsert resolves a vehicle by plate, creating it when unseen.  The
// statement relies on the unique key on plate together with the
// LAST_INSERT_ID(id) trick so that two concurrent first-seen inserts
// for the same plate converge on a single row instead of one of them
// failing with a duplicate key error.  Type and owner email are only
// written on first insert; an existing vehicle keeps its recorded
// class.
func (r *VehicleRepo) Upsert(ctx context.Context, plate string, vt model.VehicleType, ownerEmail string) (model.Vehicle, error) {
    plate = NormalizePlate(plate)
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO vehicles (plate, type, owner_email) VALUES (?, ?, ?)
         ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`,
        plate, string(vt), ownerEmail)
    if err != nil {
        return model.Vehicle{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.Vehicle{}, err
    }
    return r.GetByID(ctx, uint64(id))
}

// GetByID loads a vehicle row.  It returns sql.ErrNoRows when the
// vehicle does not exist.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (model.Vehicle, error) {
    var v model.Vehicle
    err := r.db.QueryRowContext(ctx,
        `SELECT id, plate, type, owner_email FROM vehicles WHERE id = ?`, id).
        Scan(&v.ID, &v.Plate, &v.Type, &v.OwnerEmail)
    return v, err
}

// GetByPlate loads a vehicle by its normalized plate.
func (r *VehicleRepo) GetByPlate(ctx context.Context, plate string) (model.Vehicle, error) {
    var v model.Vehicle
    err := r.db.QueryRowContext(ctx,
        `SELECT id, plate, type, owner_email FROM vehicles WHERE plate = ?`, NormalizePlate(plate)).
        Scan(&v.ID, &v.Plate, &v.Type, &v.OwnerEmail)
    return v, err
}
