package catalogRepo

import (
	"context"

	"parkly/models"
)

// CatalogRepository serves the read models the booking engine consumes:
// spaces, vehicles, and per-space tariffs. Catalog writes happen in a
// separate admin surface; the engine only reads.
type CatalogRepository interface {
	SpaceByID(ctx context.Context, spaceID string) (*models.ParkingSpace, error)
	VehicleByID(ctx context.Context, vehicleID string) (*models.Vehicle, error)
	TariffForSpace(ctx context.Context, spaceID string) (*models.Tariff, error)

	UpsertSpace(ctx context.Context, space *models.ParkingSpace) error
	UpsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	UpsertTariff(ctx context.Context, tariff *models.Tariff) error
}
