package pricing

import (
	"context"
	"time"

	"parkly/models"
)

// TariffSource is the read-only store of per-space rate cards.
type TariffSource interface {
	TariffForSpace(ctx context.Context, spaceID string) (*models.Tariff, error)
}

// OccupancySource reports how full a space currently is.
type OccupancySource interface {
	// Occupancy returns current active bookings and total slots for a space.
	Occupancy(ctx context.Context, spaceID string) (active int, slots int, err error)
}

// HolidaySource is advisory; errors degrade to "not a holiday".
type HolidaySource interface {
	IsHoliday(ctx context.Context, day time.Time) (bool, error)
}

// WeatherSource is advisory; errors degrade to "no adjustment".
type WeatherSource interface {
	IsAdverse(ctx context.Context, at time.Time, loc models.GeoPoint) (bool, error)
}
