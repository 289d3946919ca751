package booking

import (
	"context"
	"fmt"
	"time"

	"parkly/models"

	"go.uber.org/zap"
)

// The methods below are the resolver's levers: they bypass the tolerance
// window and the normal transition guards so a stalled booking can be forced
// into a terminal state. Authorization happens in the resolver; these only
// enforce aggregate-level consistency.

// ForceCheckOut completes a parked booking regardless of how far past its
// window it is. Overtime is billed through the same settlement as a normal
// checkout.
func (s *DefaultBookingService) ForceCheckOut(ctx context.Context, actor models.Actor, bookingID, reason string) (*models.Booking, error) {
	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.StatusCompleted {
		return booking, nil
	}
	if booking.Status != models.StatusParked {
		return nil, fmt.Errorf("force checkout from %s: %w", booking.Status, ErrInvalidTransition)
	}
	if reason != "" {
		booking.Audit = append(booking.Audit, models.AuditRecord{
			Action:    "resolved",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Reason:    reason,
			At:        time.Now(),
		})
	}
	if err := s.completeLocked(ctx, booking, actor, time.Now()); err != nil {
		return nil, err
	}
	return booking, nil
}

// MarkAbandoned terminates a no-show or walked-away booking. An open hold is
// released in full and the penalty is charged separately, so the hold still
// resolves exactly once.
func (s *DefaultBookingService) MarkAbandoned(ctx context.Context, actor models.Actor, bookingID string, penalty float64, reason string) (*models.Booking, error) {
	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.StatusAbandoned {
		return booking, nil
	}
	if booking.Status != models.StatusAccepted && booking.Status != models.StatusParked {
		return nil, fmt.Errorf("abandon from %s: %w", booking.Status, ErrInvalidTransition)
	}

	now := time.Now()
	if booking.Status == models.StatusAccepted {
		// Never arrived: the hold is still open.
		if err := s.Ledger.Release(ctx, booking.DriverID, booking.Pricing.HoldRef, "booking abandoned"); err != nil {
			return nil, err
		}
		booking.Pricing.PaymentStatus = models.PaymentReleased
	} else if booking.ParkingSession != nil && booking.ParkingSession.EndTime == nil {
		booking.ParkingSession.EndTime = &now
		booking.ParkingSession.BillingEnd = &now
		booking.ParkingSession.ActualDurationMinutes = ceilMinutes(now.Sub(booking.ParkingSession.BillingStart))
	}

	if penalty > 0 {
		ref, pendingDebit, err := s.Ledger.DebitOrPending(ctx, booking.DriverID, penalty, booking.ID, "abandonment penalty")
		if err != nil {
			return nil, err
		}
		if pendingDebit {
			s.Logger.Warn("abandonment penalty pending",
				zap.String("booking", booking.ID),
				zap.Float64("penalty", penalty),
				zap.String("reference", ref))
		} else if _, err := s.Ledger.Credit(ctx, s.PlatformWalletID, penalty, booking.ID, "abandonment penalty"); err != nil {
			return nil, err
		}
	}

	booking.Status = models.StatusAbandoned
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "resolved",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Reason:    reason,
		At:        now,
	})
	if err := s.Repo.UpdateWithVersion(booking); err != nil {
		return nil, err
	}

	if err := s.Tracker.EndSession(ctx, booking.ID); err != nil {
		s.Logger.Warn("failed to end geofence session", zap.String("booking", booking.ID), zap.Error(err))
	}
	s.Logger.Info("booking marked abandoned",
		zap.String("booking", booking.ID),
		zap.Float64("penalty", penalty))
	s.Notifier.Notify(ctx, booking.DriverID, models.NotifyBookingAbandoned, map[string]string{
		"bookingId": booking.ID,
		"penalty":   fmt.Sprintf("%.2f", penalty),
	})
	return booking, nil
}

// AdminOverride forces the booking into an explicit terminal status with an
// explicit charge. It is the escape hatch for disputes no schedule covers.
func (s *DefaultBookingService) AdminOverride(ctx context.Context, actor models.Actor, bookingID string, charge *float64, status, reason string) (*models.Booking, error) {
	switch status {
	case models.StatusCompleted, models.StatusCancelled, models.StatusAbandoned:
	default:
		return nil, fmt.Errorf("override to %q: %w", status, ErrValidation)
	}

	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsTerminal() {
		return nil, fmt.Errorf("override from %s: %w", booking.Status, ErrInvalidTransition)
	}

	now := time.Now()
	// Resolve an open hold before applying the explicit charge.
	if booking.Pricing.PaymentStatus == models.PaymentHeld {
		if err := s.Ledger.Release(ctx, booking.DriverID, booking.Pricing.HoldRef, "admin override"); err != nil {
			return nil, err
		}
		booking.Pricing.PaymentStatus = models.PaymentReleased
	}
	if charge != nil && *charge > 0 {
		ref, pendingDebit, err := s.Ledger.DebitOrPending(ctx, booking.DriverID, *charge, booking.ID, "admin override charge")
		if err != nil {
			return nil, err
		}
		if pendingDebit {
			s.Logger.Warn("override charge pending",
				zap.String("booking", booking.ID), zap.String("reference", ref))
		} else if _, err := s.Ledger.Credit(ctx, s.PlatformWalletID, *charge, booking.ID, "admin override charge"); err != nil {
			return nil, err
		}
		booking.Pricing.FinalTotalAmount = booking.Pricing.TotalAmount + *charge
	}

	if booking.ParkingSession != nil && booking.ParkingSession.EndTime == nil {
		booking.ParkingSession.EndTime = &now
		booking.ParkingSession.BillingEnd = &now
		booking.ParkingSession.ActualDurationMinutes = ceilMinutes(now.Sub(booking.ParkingSession.BillingStart))
	}
	booking.Status = status
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "resolved",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Reason:    reason,
		At:        now,
	})
	if err := s.Repo.UpdateWithVersion(booking); err != nil {
		return nil, err
	}
	if err := s.Tracker.EndSession(ctx, booking.ID); err != nil {
		s.Logger.Warn("failed to end geofence session", zap.String("booking", booking.ID), zap.Error(err))
	}
	s.Logger.Info("admin override applied",
		zap.String("booking", booking.ID),
		zap.String("status", status))
	return booking, nil
}
