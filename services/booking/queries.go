package booking

import (
	"context"

	"parkly/models"
)

const defaultListLimit = 50

// GetByID returns the booking to its driver, its landlord, or an admin.
func (s *DefaultBookingService) GetByID(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && actor.ID != booking.DriverID && actor.ID != booking.LandlordID {
		return nil, ErrNotAllowed
	}
	return booking, nil
}

// ListForDriver returns the caller's bookings, newest first.
func (s *DefaultBookingService) ListForDriver(ctx context.Context, actor models.Actor, limit int64) ([]models.Booking, error) {
	if actor.Role != models.RoleDriver && actor.Role != models.RoleAdmin {
		return nil, ErrNotAllowed
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.Repo.ListByDriver(actor.ID, limit)
}

// ListForLandlord returns bookings across the caller's spaces, newest first.
func (s *DefaultBookingService) ListForLandlord(ctx context.Context, actor models.Actor, limit int64) ([]models.Booking, error) {
	if actor.Role != models.RoleLandlord && actor.Role != models.RoleAdmin {
		return nil, ErrNotAllowed
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.Repo.ListByLandlord(actor.ID, limit)
}
