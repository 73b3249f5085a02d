package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/parkwise/parking/internal/model"
)

// TicketRepo provides persistence for tickets.  Ticket rows carry an
// auxiliary `active` column that is 1 while the ticket is ACTIVE and
// NULL otherwise; the unique key on (vehicle_id, active) is what
// serializes concurrent entries for the same plate.  MySQL permits
// any number of NULLs in a unique key, so closed tickets never
// conflict.
type TicketRepo struct {
    db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// TicketDetail joins a ticket with the vehicle and slot it refers to.
// The lifecycle service needs the plate and vehicle type for pricing
// and the slot row for release, so the repository loads them in one
// query.
type TicketDetail struct {
    Ticket  model.Ticket
    Plate   string
    Type    model.VehicleType
    Slot    model.ParkingSlot
}

// CreateActive inserts a new ACTIVE ticket bound to the reserved
// slot.  When the vehicle already holds an ACTIVE ticket, including
// the case where two entries for the same plate race past the
// pre-check, the unique key fires and ErrAlreadyParked is returned;
// the caller must then roll the slot reservation back.
func (r *TicketRepo) CreateActive(ctx context.Context, vehicleID, slotID uint64, entry time.Time) (model.Ticket, error) {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO tickets (vehicle_id, slot_id, entry_time, status, active)
         VALUES (?, ?, ?, ?, 1)`,
        vehicleID, slotID, entry.UTC().Format("2006-01-02 15:04:05"), model.TicketStatusActive)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return model.Ticket{}, ErrAlreadyParked
        }
        return model.Ticket{}, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return model.Ticket{}, err
    }
    return model.Ticket{
        ID:        uint64(id),
        VehicleID: vehicleID,
        SlotID:    slotID,
        EntryTime: entry.UTC(),
        Status:    model.TicketStatusActive,
    }, nil
}

// HasActiveByPlate reports whether the plate currently holds an
// ACTIVE ticket.  This is the cheap pre-check before allocation; the
// unique key remains the authority under races.
func (r *TicketRepo) HasActiveByPlate(ctx context.Context, plate string) (bool, error) {
    const q = `SELECT 1 FROM tickets t
               JOIN vehicles v ON v.id = t.vehicle_id
               WHERE v.plate = ? AND t.status = ? LIMIT 1`
    var one int
    err := r.db.QueryRowContext(ctx, q, NormalizePlate(plate), model.TicketStatusActive).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// GetDetail loads a ticket together with its vehicle plate/type and
// the slot it holds.  ErrTicketNotFound is returned when the ticket
// does not exist.
func (r *TicketRepo) GetDetail(ctx context.Context, ticketID uint64) (TicketDetail, error) {
    const q = `SELECT t.id, t.vehicle_id, t.slot_id, t.entry_time, t.exit_time, t.status,
                      v.plate, v.type,
                      s.id, s.lot_id, s.floor, s.number, s.type, s.status, s.version
               FROM tickets t
               JOIN vehicles v ON v.id = t.vehicle_id
               JOIN parking_slots s ON s.id = t.slot_id
               WHERE t.id = ?`
    var d TicketDetail
    var exit sql.NullTime
    err := r.db.QueryRowContext(ctx, q, ticketID).Scan(
        &d.Ticket.ID, &d.Ticket.VehicleID, &d.Ticket.SlotID, &d.Ticket.EntryTime, &exit, &d.Ticket.Status,
        &d.Plate, &d.Type,
        &d.Slot.ID, &d.Slot.LotID, &d.Slot.Floor, &d.Slot.Number, &d.Slot.Type, &d.Slot.Status, &d.Slot.Version,
    )
    if err == sql.ErrNoRows {
        return TicketDetail{}, ErrTicketNotFound
    }
    if err != nil {
        return TicketDetail{}, err
    }
    if exit.Valid {
        t := exit.Time.UTC()
        d.Ticket.ExitTime = &t
    }
    d.Ticket.EntryTime = d.Ticket.EntryTime.UTC()
    return d, nil
}

// MarkPaid transitions an ACTIVE ticket to PAID, recording the exit
// time and clearing the active marker so the vehicle may enter again.
// The WHERE clause guards the state machine: a ticket that is already
// terminal is left untouched and ErrTicketNotFound is reported via a
// zero row count turned into sql.ErrNoRows by the caller's check.
func (r *TicketRepo) MarkPaid(ctx context.Context, ticketID uint64, exit time.Time) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE tickets SET status = ?, exit_time = ?, active = NULL
         WHERE id = ? AND status = ?`,
        model.TicketStatusPaid, exit.UTC().Format("2006-01-02 15:04:05"), ticketID, model.TicketStatusActive)
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
