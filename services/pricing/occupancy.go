package pricing

import (
	"context"
	"fmt"
	"time"

	bookingRepo "parkly/database/repository/booking"
	catalogRepo "parkly/database/repository/catalog"
)

// RepoOccupancySource derives occupancy from live booking counts against the
// space's slot count.
type RepoOccupancySource struct {
	Bookings bookingRepo.BookingRepository
	Catalog  catalogRepo.CatalogRepository
}

// Occupancy counts bookings overlapping "now" on the space.
func (s *RepoOccupancySource) Occupancy(ctx context.Context, spaceID string) (int, int, error) {
	space, err := s.Catalog.SpaceByID(ctx, spaceID)
	if err != nil {
		return 0, 0, err
	}
	now := time.Now()
	active, err := s.Bookings.CountOverlapping(spaceID, now, now.Add(time.Minute))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return int(active), space.Slots, nil
}

// StaticHolidaySource answers from a fixed set of dates (YYYY-MM-DD). A real
// deployment swaps in a regional calendar feed.
type StaticHolidaySource struct {
	Dates map[string]bool
}

func (s *StaticHolidaySource) IsHoliday(ctx context.Context, day time.Time) (bool, error) {
	return s.Dates[day.Format("2006-01-02")], nil
}
