package model

// ParkingLot represents a physical parking facility.  Lots are
// administered out of band; the allocation core only reads them.
//
// Fields:
//  ID       – primary key identifier.
//  Location – human readable address or site name.
//  Floors   – number of floors in the structure.
type ParkingLot struct {
    ID       uint64 // parking_lots.id
    Location string // parking_lots.location
    Floors   int    // parking_lots.floors
}

// Gate represents an entry or exit gate of a parking lot.  The floor
// of the gate is the reference point for the nearest allocation
// strategy.  Floors are zero based and may be negative for
// below-grade levels.
//
// Fields:
//  ID    – primary key identifier.
//  LotID – lot to which the gate belongs.
//  Floor – floor on which the gate is located.
//  Type  – ENTRY or EXIT.
type Gate struct {
    ID    uint64 // gates.id
    LotID uint64 // gates.lot_id
    Floor int    // gates.floor
    Type  string // gates.type
}
