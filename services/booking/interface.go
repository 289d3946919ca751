package booking

import (
	"context"

	"parkly/config"
	bookingRepo "parkly/database/repository/booking"
	"parkly/models"
	"parkly/services/eta"
	"parkly/services/geofence"
	"parkly/services/notification"
	"parkly/services/pricing"
	"parkly/services/wallet"
	"parkly/utils"

	"go.uber.org/zap"
)

// BookingService is the lifecycle state machine of a reservation. It
// orchestrates the wallet ledger, the pricing calculator, and the geofence
// tracker; every state-changing call runs under a per-booking lock.
type BookingService interface {
	Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.Booking, error)
	Accept(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	Reject(ctx context.Context, actor models.Actor, bookingID, reason string) (*models.Booking, error)
	Cancel(ctx context.Context, actor models.Actor, bookingID, reason string) (*models.Booking, error)
	CheckIn(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	CheckOut(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	HandleLocationUpdate(ctx context.Context, actor models.Actor, bookingID string, sample models.LocationSample) error

	GetByID(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	ListForDriver(ctx context.Context, actor models.Actor, limit int64) ([]models.Booking, error)
	ListForLandlord(ctx context.Context, actor models.Actor, limit int64) ([]models.Booking, error)

	// ExpirePending cancels pending bookings past their no-response window,
	// releasing their holds. Run by the sweep worker.
	ExpirePending(ctx context.Context) (int, error)
}

// CreateRequest is the input for a new reservation.
type CreateRequest struct {
	SpaceID   string           `json:"space_id"`
	VehicleID string           `json:"vehicle_id"`
	Mode      string           `json:"mode"`
	Start     string           `json:"start,omitempty"` // RFC3339, scheduled only
	End       string           `json:"end,omitempty"`   // RFC3339, scheduled only
	Origin    *models.GeoPoint `json:"origin,omitempty"`
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo     bookingRepo.BookingRepository
	Ledger   wallet.LedgerService
	Quotes   pricing.QuoteEngine
	Tracker  *geofence.Tracker
	Spaces   SpaceSource
	Vehicles VehicleSource
	Router   eta.RouteProvider
	Notifier notification.Sink
	Cfg      config.BookingConfig
	Logger   *zap.Logger

	// PlatformWalletID is the owner id of the escrow account captured funds
	// settle into.
	PlatformWalletID string

	locks *utils.KeyedMutex
}

// NewBookingService wires the state machine.
func NewBookingService(
	repo bookingRepo.BookingRepository,
	ledger wallet.LedgerService,
	quotes pricing.QuoteEngine,
	tracker *geofence.Tracker,
	spaces SpaceSource,
	vehicles VehicleSource,
	router eta.RouteProvider,
	notifier notification.Sink,
	cfg config.BookingConfig,
	platformWalletID string,
	logger *zap.Logger,
) *DefaultBookingService {
	return &DefaultBookingService{
		Repo:             repo,
		Ledger:           ledger,
		Quotes:           quotes,
		Tracker:          tracker,
		Spaces:           spaces,
		Vehicles:         vehicles,
		Router:           router,
		Notifier:         notifier,
		Cfg:              cfg,
		PlatformWalletID: platformWalletID,
		Logger:           logger,
		locks:            utils.NewKeyedMutex(),
	}
}
