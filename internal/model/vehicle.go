package model

// VehicleType classifies a vehicle into one of the closed set of
// classes used for slot compatibility and pricing.  The values are
// stored as strings in the database (`vehicles.type` and
// `parking_slots.type` columns).
type VehicleType string

const (
    VehicleTypeBike  VehicleType = "BIKE"  // two-wheelers
    VehicleTypeCar   VehicleType = "CAR"   // four-wheelers
    VehicleTypeTruck VehicleType = "TRUCK" // heavy-wheelers
)

// ValidVehicleType reports whether s names a known vehicle type.
func ValidVehicleType(s string) bool {
    switch VehicleType(s) {
    case VehicleTypeBike, VehicleTypeCar, VehicleTypeTruck:
        return true
    }
    return false
}

// Vehicle represents a vehicle known to the system.  Vehicles are
// created lazily on first entry and never deleted.  The plate is
// unique and stored upper-cased without surrounding whitespace.
//
// Fields:
//  ID         – primary key identifier.
//  Plate      – normalized license plate (unique).
//  Type       – vehicle class (BIKE, CAR, TRUCK).
//  OwnerEmail – contact address of the owner.
type Vehicle struct {
    ID         uint64      // vehicles.id
    Plate      string      // vehicles.plate
    Type       VehicleType // vehicles.type
    OwnerEmail string      // vehicles.owner_email
}
