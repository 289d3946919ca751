package models

// ParkingSpace is the catalog read model of one listed space.
type ParkingSpace struct {
	ID         string   `bson:"id" json:"id"`
	LandlordID string   `bson:"landlord_id" json:"landlord_id"`
	Name       string   `bson:"name" json:"name"`
	Location   GeoPoint `bson:"location" json:"location"`
	Slots      int      `bson:"slots" json:"slots"` // concurrent bays offered
	Active     bool     `bson:"active" json:"active"`
}

// Vehicle is the catalog read model of one registered vehicle.
type Vehicle struct {
	ID      string `bson:"id" json:"id"`
	OwnerID string `bson:"owner_id" json:"owner_id"`
	Plate   string `bson:"plate" json:"plate"`
	Type    string `bson:"type" json:"type"`
	Active  bool   `bson:"active" json:"active"`
}
