package booking

import (
	"context"
	"fmt"
	"time"

	"parkly/models"

	"go.uber.org/zap"
)

// Accept transitions pending -> accepted. Only the space owner may accept.
// Availability is re-checked: a conflicting accept fails instead of
// overbooking. Repeating an accept on an already accepted booking is a no-op.
func (s *DefaultBookingService) Accept(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if err := requireLandlord(actor, booking); err != nil {
		return nil, err
	}
	if booking.Status == models.StatusAccepted {
		return booking, nil
	}
	if booking.Status != models.StatusPending {
		return nil, fmt.Errorf("accept from %s: %w", booking.Status, ErrInvalidTransition)
	}

	space, err := s.Spaces.SpaceByID(ctx, booking.SpaceID)
	if err != nil || space == nil {
		return nil, fmt.Errorf("space %s: %w", booking.SpaceID, ErrSpaceUnavailable)
	}
	overlapping, err := s.Repo.CountOverlapping(booking.SpaceID, booking.StartTime, booking.EndTime)
	if err != nil {
		return nil, fmt.Errorf("availability re-check failed: %w", err)
	}
	// The pending booking itself is part of the count.
	if overlapping > int64(space.Slots) {
		return nil, fmt.Errorf("space %s oversubscribed: %w", booking.SpaceID, ErrWindowUnavailable)
	}

	booking.Status = models.StatusAccepted
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "accepted",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        time.Now(),
	})
	if err := s.Repo.UpdateWithVersion(booking); err != nil {
		return nil, err
	}

	// Tracking starts at acceptance so the approach is visible immediately.
	if err := s.Tracker.EnsureSession(ctx, booking.ID, space.Location); err != nil {
		s.Logger.Warn("failed to start geofence session", zap.String("booking", booking.ID), zap.Error(err))
	}

	s.Notifier.Notify(ctx, booking.DriverID, models.NotifyBookingAccepted, map[string]string{
		"bookingId": booking.ID,
		"code":      booking.Code,
	})
	return booking, nil
}

// Reject transitions pending -> rejected and releases the hold. Repeating a
// reject on an already rejected booking is a no-op.
func (s *DefaultBookingService) Reject(ctx context.Context, actor models.Actor, bookingID, reason string) (*models.Booking, error) {
	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if err := requireLandlord(actor, booking); err != nil {
		return nil, err
	}
	if booking.Status == models.StatusRejected {
		return booking, nil
	}
	if booking.Status != models.StatusPending {
		return nil, fmt.Errorf("reject from %s: %w", booking.Status, ErrInvalidTransition)
	}

	if err := s.Ledger.Release(ctx, booking.DriverID, booking.Pricing.HoldRef, "booking rejected"); err != nil {
		return nil, err
	}
	booking.Status = models.StatusRejected
	booking.Pricing.PaymentStatus = models.PaymentReleased
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "rejected",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Reason:    reason,
		At:        time.Now(),
	})
	if err := s.Repo.UpdateWithVersion(booking); err != nil {
		return nil, err
	}

	if err := s.Tracker.EndSession(ctx, booking.ID); err != nil {
		s.Logger.Warn("failed to end geofence session", zap.String("booking", booking.ID), zap.Error(err))
	}
	s.Notifier.Notify(ctx, booking.DriverID, models.NotifyBookingRejected, map[string]string{
		"bookingId": booking.ID,
		"reason":    reason,
	})
	return booking, nil
}

func requireLandlord(actor models.Actor, booking *models.Booking) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleLandlord && actor.ID == booking.LandlordID {
		return nil
	}
	return ErrNotAllowed
}

func requireDriver(actor models.Actor, booking *models.Booking) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleDriver && actor.ID == booking.DriverID {
		return nil
	}
	return ErrNotAllowed
}
