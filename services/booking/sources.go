package booking

import (
	"context"

	"parkly/models"
)

// SpaceSource loads parking space read models. Space CRUD lives outside the
// core; only reads cross this boundary.
type SpaceSource interface {
	SpaceByID(ctx context.Context, spaceID string) (*models.ParkingSpace, error)
}

// VehicleSource loads vehicle read models.
type VehicleSource interface {
	VehicleByID(ctx context.Context, vehicleID string) (*models.Vehicle, error)
}
