package model

// Slot status values.  A slot only ever moves AVAILABLE→OCCUPIED on a
// successful reservation and OCCUPIED→AVAILABLE on release.
const (
    SlotStatusAvailable = "AVAILABLE"
    SlotStatusOccupied  = "OCCUPIED"
)

// ParkingSlot describes a single physical parking space.  Slots are
// uniquely located by lot, floor and number.  The Version column is a
// fencing token: it increases monotonically on every status flip so
// that observers can detect lost-update races.
//
// Fields:
//  ID      – primary key identifier.
//  LotID   – lot to which the slot belongs.
//  Floor   – floor of the slot (negative for below-grade).
//  Number  – slot number, unique within lot+floor.
//  Type    – vehicle class the slot accommodates.
//  Status  – AVAILABLE or OCCUPIED.
//  Version – monotonically increasing fencing token.
type ParkingSlot struct {
    ID      uint64      // parking_slots.id
    LotID   uint64      // parking_slots.lot_id
    Floor   int         // parking_slots.floor
    Number  int         // parking_slots.number
    Type    VehicleType // parking_slots.type
    Status  string      // parking_slots.status
    Version uint64      // parking_slots.version
}
