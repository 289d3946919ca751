package booking

import (
	"context"
	"fmt"
	"time"

	"parkly/models"
	"parkly/services/pricing"

	"go.uber.org/zap"
)

// CheckOut ends the parking session manually. Outside the tolerance window
// the booking belongs to the expiration resolver and the call is refused.
func (s *DefaultBookingService) CheckOut(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleDriver {
		if err := requireDriver(actor, booking); err != nil {
			return nil, err
		}
	} else if err := requireLandlord(actor, booking); err != nil {
		return nil, err
	}
	if booking.Status == models.StatusCompleted {
		return booking, nil
	}
	if booking.Status != models.StatusParked && booking.Status != models.StatusAccepted {
		return nil, fmt.Errorf("checkout from %s: %w", booking.Status, ErrInvalidTransition)
	}

	now := time.Now()
	if booking.Status == models.StatusAccepted && now.Before(booking.StartTime) {
		return nil, fmt.Errorf("booking %s has not started yet: %w",
			booking.ID, ErrCheckoutWindowExceeded)
	}
	end := booking.EffectiveEnd()
	tolerance := end.Add(time.Duration(s.Cfg.CheckoutWindowAfterHours) * time.Hour)
	if now.After(tolerance) {
		return nil, fmt.Errorf("booking %s is %s past its window: %w",
			booking.ID, now.Sub(end).Round(time.Minute), ErrCheckoutWindowExceeded)
	}

	// The driver may have parked without ever crossing the geofence or
	// scanning at the gate. Inside the window that is still a valid stay:
	// settle the arrival first, then complete.
	if booking.Status == models.StatusAccepted {
		if err := s.arriveLocked(ctx, booking, actor, now); err != nil {
			return nil, err
		}
	}
	if err := s.completeLocked(ctx, booking, actor, now); err != nil {
		return nil, err
	}
	return booking, nil
}

// completeLocked closes the parking session, bills overtime if any, and flips
// the booking to completed. The caller holds the booking lock.
func (s *DefaultBookingService) completeLocked(ctx context.Context, booking *models.Booking, actor models.Actor, at time.Time) error {
	session := booking.ParkingSession
	if session == nil {
		return fmt.Errorf("booking %s has no parking session: %w", booking.ID, ErrInvalidTransition)
	}

	actualMinutes := ceilMinutes(at.Sub(session.BillingStart))
	overtimeMinutes := s.overtimeMinutes(booking, at)

	if overtimeMinutes > 0 {
		charge, err := s.Quotes.OvertimeFor(ctx, booking.SpaceID, overtimeMinutes)
		if err != nil {
			return err
		}
		ref, pendingDebit, err := s.Ledger.DebitOrPending(ctx, booking.DriverID, charge.Amount, booking.ID,
			fmt.Sprintf("overtime %d min", overtimeMinutes))
		if err != nil {
			return err
		}
		if pendingDebit {
			// The driver could not cover the charge now. The landlord's share
			// becomes an obligation; both settle when the debit clears.
			s.Logger.Warn("overtime debit pending",
				zap.String("booking", booking.ID),
				zap.Float64("amount", charge.Amount),
				zap.String("reference", ref))
			if _, oblErr := s.Ledger.RecordObligation(ctx, booking.LandlordID, charge.LandlordShare, booking.ID, "deferred overtime earnings"); oblErr != nil {
				s.Logger.Error("failed to record overtime obligation",
					zap.String("booking", booking.ID), zap.Error(oblErr))
			}
		} else {
			if _, err := s.Ledger.Credit(ctx, booking.LandlordID, charge.LandlordShare, booking.ID, "overtime earnings"); err != nil {
				return err
			}
			if _, err := s.Ledger.Credit(ctx, s.PlatformWalletID, charge.PlatformShare, booking.ID, "overtime platform share"); err != nil {
				return err
			}
		}
		session.OvertimeMinutes = overtimeMinutes
		session.OvertimeAmount = charge.Amount
		booking.Pricing.OvertimeAmount = charge.Amount
		booking.Pricing.FinalTotalAmount = booking.Pricing.TotalAmount + charge.Amount
		s.Notifier.Notify(ctx, booking.DriverID, models.NotifyOvertimeCharged, map[string]string{
			"bookingId": booking.ID,
			"amount":    fmt.Sprintf("%.2f", charge.Amount),
		})
	}

	end := at
	session.EndTime = &end
	session.BillingEnd = &end
	session.ActualDurationMinutes = actualMinutes

	booking.Status = models.StatusCompleted
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "checked_out",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        at,
	})
	if err := s.Repo.UpdateWithVersion(booking); err != nil {
		return err
	}

	if err := s.Tracker.EndSession(ctx, booking.ID); err != nil {
		s.Logger.Warn("failed to end geofence session",
			zap.String("booking", booking.ID), zap.Error(err))
	}
	s.Logger.Info("booking completed",
		zap.String("booking", booking.ID),
		zap.Int("minutes", actualMinutes),
		zap.Int("overtime", overtimeMinutes))
	s.Notifier.Notify(ctx, booking.LandlordID, models.NotifyBookingCompleted, map[string]string{
		"bookingId": booking.ID,
	})
	return nil
}

// overtimeMinutes: scheduled bookings pay past their booked end; on-demand
// bookings pay past the standard-rate block.
func (s *DefaultBookingService) overtimeMinutes(booking *models.Booking, at time.Time) int {
	session := booking.ParkingSession
	actual := ceilMinutes(at.Sub(session.BillingStart))
	allowed := ceilMinutes(booking.EffectiveEnd().Sub(session.BillingStart))
	return pricing.OvertimeMinutes(actual, allowed)
}

func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	minutes := int(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	return minutes
}
