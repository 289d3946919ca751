package bookingRepo

import (
	"time"

	"parkly/models"
)

// BookingRepository defines the interface for booking aggregate persistence.
// UpdateWithVersion is a conditional write: it only lands when the stored
// version still matches the one the caller loaded.
type BookingRepository interface {
	Create(booking *models.Booking) error
	GetByID(id string) (*models.Booking, error)
	GetByCode(code string) (*models.Booking, error)
	UpdateWithVersion(booking *models.Booking) error

	// CountOverlapping counts bookings on a space in a non-terminal status
	// whose window overlaps [start, end). It backs the N-slot capacity check.
	CountOverlapping(spaceID string, start, end time.Time) (int64, error)

	// ListPendingCreatedBefore returns pending bookings older than the cutoff.
	ListPendingCreatedBefore(cutoff time.Time) ([]models.Booking, error)

	// ListStalled returns accepted/parked bookings whose window end passed
	// the cutoff, i.e. candidates for the expiration resolver.
	ListStalled(cutoff time.Time) ([]models.Booking, error)

	ListByDriver(driverID string, limit int64) ([]models.Booking, error)
	ListByLandlord(landlordID string, limit int64) ([]models.Booking, error)
}
