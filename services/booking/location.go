package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/models"
	"parkly/services/geofence"

	"go.uber.org/zap"
)

// HandleLocationUpdate feeds one driver location sample into the geofence
// tracker and applies whatever transition the resulting event demands.
// Samples for bookings that are not being tracked are dropped silently.
func (s *DefaultBookingService) HandleLocationUpdate(ctx context.Context, actor models.Actor, bookingID string, sample models.LocationSample) error {
	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return err
	}
	if err := requireDriver(actor, booking); err != nil {
		return err
	}
	if booking.Status != models.StatusAccepted && booking.Status != models.StatusParked {
		return nil
	}

	event, err := s.Tracker.Process(ctx, bookingID, sample)
	if errors.Is(err, geofence.ErrNoSession) {
		// Session lost (Redis flush, restart): rebuild it and retry once.
		space, spaceErr := s.Spaces.SpaceByID(ctx, booking.SpaceID)
		if spaceErr != nil || space == nil {
			return fmt.Errorf("cannot rebuild geofence session: %w", ErrSpaceUnavailable)
		}
		if err = s.Tracker.EnsureSession(ctx, bookingID, space.Location); err != nil {
			return err
		}
		event, err = s.Tracker.Process(ctx, bookingID, sample)
	}
	if err != nil {
		return err
	}
	if event == nil {
		// The tracker emits arrival once, but the settlement it triggered may
		// have failed after the session already recorded the arrival. While
		// the booking is still accepted and the driver keeps reporting from
		// inside the fence, re-drive the arrival instead of dropping it.
		if booking.Status == models.StatusAccepted {
			session, serr := s.Tracker.Session(ctx, bookingID)
			if serr == nil && session != nil && session.HasArrived && !session.ParkingStarted {
				return s.onArrivalEvent(ctx, bookingID, sample.Timestamp)
			}
		}
		return nil
	}

	switch event.Kind {
	case models.EventApproaching:
		s.Logger.Info("driver approaching",
			zap.String("booking", bookingID),
			zap.Float64("distance", event.Distance))
		return nil

	case models.EventArrived:
		return s.onArrivalEvent(ctx, bookingID, event.At)

	case models.EventAutoCheckout:
		return s.onAutoCheckoutEvent(ctx, bookingID, event.At)
	}
	return nil
}

// onArrivalEvent settles arrival for an accepted booking. The state is
// re-read under the booking lock: the manual check-in path may have won.
func (s *DefaultBookingService) onArrivalEvent(ctx context.Context, bookingID string, at time.Time) error {
	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return err
	}
	if booking.Status != models.StatusAccepted {
		return nil
	}
	return s.arriveLocked(ctx, booking, systemActor, at)
}

// onAutoCheckoutEvent completes a parked booking after a confirmed exit.
func (s *DefaultBookingService) onAutoCheckoutEvent(ctx context.Context, bookingID string, at time.Time) error {
	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return err
	}
	if booking.Status != models.StatusParked {
		return nil
	}
	return s.completeLocked(ctx, booking, systemActor, at)
}
