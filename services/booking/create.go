package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parkly/models"
	"parkly/services/pricing"
	"parkly/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Confidence attached to the arrival window depending on how the travel
// estimate was obtained.
const (
	routeConfidence    = 80
	fallbackConfidence = 40
)

// Create validates the request, reserves funds, and persists the booking in
// pending. The capacity check and the hold run inside the per-space critical
// section so a race loser fails with ErrWindowUnavailable instead of
// overbooking.
func (s *DefaultBookingService) Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.Booking, error) {
	if actor.Role != models.RoleDriver {
		return nil, ErrNotAllowed
	}

	vehicle, err := s.Vehicles.VehicleByID(ctx, req.VehicleID)
	if err != nil || vehicle == nil || !vehicle.Active {
		return nil, fmt.Errorf("vehicle %s: %w", req.VehicleID, ErrVehicleInvalid)
	}
	if vehicle.OwnerID != actor.ID {
		return nil, fmt.Errorf("vehicle %s not owned by driver: %w", req.VehicleID, ErrVehicleInvalid)
	}

	space, err := s.Spaces.SpaceByID(ctx, req.SpaceID)
	if err != nil || space == nil || !space.Active {
		return nil, fmt.Errorf("space %s: %w", req.SpaceID, ErrSpaceUnavailable)
	}

	now := time.Now()
	start, end, window, err := s.resolveWindow(ctx, req, space, now)
	if err != nil {
		return nil, err
	}

	quote, err := s.Quotes.QuoteBooking(ctx, models.QuoteRequest{
		SpaceID:     space.ID,
		VehicleType: vehicle.Type,
		Location:    space.Location,
		Start:       start,
		Duration:    s.billableDuration(req.Mode, start, end),
		RequestedAt: now,
	})
	if err != nil {
		// A rejected vehicle type is a precondition failure, not a pricing
		// outage.
		if errors.Is(err, pricing.ErrVehicleNotAccepted) {
			return nil, fmt.Errorf("vehicle %s: %w", req.VehicleID, ErrVehicleInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrQuoteFailed, err)
	}

	booking := &models.Booking{
		ID:         uuid.New().String(),
		Code:       newBookingCode(),
		DriverID:   actor.ID,
		LandlordID: space.LandlordID,
		SpaceID:    space.ID,
		Vehicle: models.VehicleRef{
			ID:    vehicle.ID,
			Plate: vehicle.Plate,
			Type:  vehicle.Type,
		},
		Mode:          req.Mode,
		StartTime:     start,
		EndTime:       end,
		ArrivalWindow: window,
		Status:        models.StatusPending,
		Pricing: models.BookingPricing{
			BaseRate:         quote.BaseRate,
			TotalAmount:      quote.Total,
			ServiceFee:       quote.ServiceFee,
			LandlordEarnings: quote.LandlordEarnings,
			PlatformEarnings: quote.PlatformEarnings,
			FinalTotalAmount: quote.Total,
			PaymentStatus:    models.PaymentPending,
		},
		Audit: []models.AuditRecord{{
			Action:    "created",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			At:        now,
		}},
	}

	// Capacity check and hold share one serialized region per space.
	spaceKey := "space:" + space.ID
	s.locks.Lock(spaceKey)
	defer s.locks.Unlock(spaceKey)

	overlapping, err := s.Repo.CountOverlapping(space.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("availability check failed: %w", err)
	}
	if overlapping >= int64(space.Slots) {
		return nil, fmt.Errorf("space %s has no free slot: %w", space.ID, ErrWindowUnavailable)
	}

	holdRef, err := s.Ledger.Hold(ctx, actor.ID, quote.Total, booking.ID, "booking hold")
	if err != nil {
		return nil, err
	}
	booking.Pricing.HoldRef = holdRef
	booking.Pricing.PaymentStatus = models.PaymentHeld

	if err := s.Repo.Create(booking); err != nil {
		// Unwind the hold in the same scope so no orphan earmark survives.
		if relErr := s.Ledger.Release(ctx, actor.ID, holdRef, "create failed"); relErr != nil {
			s.Logger.Error("failed to release hold after create failure",
				zap.String("booking", booking.ID), zap.Error(relErr))
		}
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	s.Logger.Info("booking created",
		zap.String("booking", booking.ID),
		zap.String("code", booking.Code),
		zap.Float64("total", quote.Total))
	s.Notifier.Notify(ctx, booking.LandlordID, models.NotifyBookingCreated, map[string]string{
		"bookingId": booking.ID,
		"code":      booking.Code,
	})
	return booking, nil
}

// resolveWindow computes the booking window. Scheduled bookings carry their
// requested [start, end]; on-demand bookings get an ETA-plus-grace arrival
// deadline that is never billed against.
func (s *DefaultBookingService) resolveWindow(ctx context.Context, req CreateRequest, space *models.ParkingSpace, now time.Time) (time.Time, time.Time, *models.ArrivalWindow, error) {
	switch req.Mode {
	case models.ModeScheduled:
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("bad start time: %w", ErrValidation)
		}
		end, err := time.Parse(time.RFC3339, req.End)
		if err != nil {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("bad end time: %w", ErrValidation)
		}
		if !end.After(start) || !start.After(now) {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("scheduled window must be in the future with end after start: %w", ErrValidation)
		}
		return start, end, nil, nil

	case models.ModeOnDemand:
		travelMinutes := s.Cfg.FallbackTravelMinutes
		confidence := fallbackConfidence
		if req.Origin != nil && utils.ValidCoordinate(req.Origin.Lat, req.Origin.Lng) {
			if est, err := s.Router.Estimate(ctx, *req.Origin, space.Location); err == nil {
				travelMinutes = (est.DurationInTrafficSeconds + 59) / 60
				confidence = routeConfidence
			} else {
				s.Logger.Warn("route estimate failed, using fallback window", zap.Error(err))
			}
		}
		predicted := now.Add(time.Duration(travelMinutes) * time.Minute)
		deadline := predicted.Add(time.Duration(s.Cfg.GracePeriodMinutes) * time.Minute)
		window := &models.ArrivalWindow{
			PredictedTravelMinutes: travelMinutes,
			GraceMinutes:           s.Cfg.GracePeriodMinutes,
			PredictedArrival:       predicted,
			MaxArrivalWindow:       deadline,
			Confidence:             confidence,
		}
		return now, deadline, window, nil

	default:
		return time.Time{}, time.Time{}, nil, fmt.Errorf("unknown mode %q: %w", req.Mode, ErrValidation)
	}
}

// billableDuration is what the quote covers: the requested window for
// scheduled bookings, the standard-rate block for on-demand ones.
func (s *DefaultBookingService) billableDuration(mode string, start, end time.Time) time.Duration {
	if mode == models.ModeScheduled {
		return end.Sub(start)
	}
	return time.Duration(s.Cfg.StandardRateMinutes) * time.Minute
}

func newBookingCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "PK-" + id[:6]
}
