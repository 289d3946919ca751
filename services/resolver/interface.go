package resolver

import (
	"context"

	"parkly/config"
	bookingRepo "parkly/database/repository/booking"
	"parkly/models"
	"parkly/services/pricing"

	"go.uber.org/zap"
)

// Resolver handles bookings stalled past their window: it classifies how far
// gone they are, proposes resolutions, and executes the chosen one through
// the booking engine.
type Resolver interface {
	Analyze(ctx context.Context, actor models.Actor, bookingID string) (*models.ExpirationAnalysis, error)
	Execute(ctx context.Context, actor models.Actor, req models.ResolutionRequest) (*models.Booking, error)

	// SweepStalled scans for stalled bookings, auto-abandons long-gone
	// no-shows, and escalates the rest. Run by the sweep worker.
	SweepStalled(ctx context.Context) (int, error)
}

// Finalizer is the slice of the booking engine the resolver drives.
type Finalizer interface {
	ForceCheckOut(ctx context.Context, actor models.Actor, bookingID, reason string) (*models.Booking, error)
	MarkAbandoned(ctx context.Context, actor models.Actor, bookingID string, penalty float64, reason string) (*models.Booking, error)
	AdminOverride(ctx context.Context, actor models.Actor, bookingID string, charge *float64, status, reason string) (*models.Booking, error)
}

// DefaultResolver implements Resolver.
type DefaultResolver struct {
	Repo   bookingRepo.BookingRepository
	Engine Finalizer
	Quotes pricing.QuoteEngine
	Cfg    config.BookingConfig
	Logger *zap.Logger
}

// NewResolver wires the expiration resolver.
func NewResolver(repo bookingRepo.BookingRepository, engine Finalizer, quotes pricing.QuoteEngine, cfg config.BookingConfig, logger *zap.Logger) *DefaultResolver {
	return &DefaultResolver{
		Repo:   repo,
		Engine: engine,
		Quotes: quotes,
		Cfg:    cfg,
		Logger: logger,
	}
}
