package booking

import (
	"context"
	"fmt"
	"time"

	"parkly/models"
	"parkly/utils"

	"go.uber.org/zap"
)

// Cancel ends a pending or accepted booking before check-in. A landlord
// cancelling always refunds the driver in full; a driver cancelling an
// accepted booking pays on the sliding schedule:
//
//	>= 24h before start  full release
//	>=  2h before start  half refunded, half kept by the platform
//	<   2h before start  full amount kept
func (s *DefaultBookingService) Cancel(ctx context.Context, actor models.Actor, bookingID, reason string) (*models.Booking, error) {
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
	if booking.Status == models.StatusCancelled {
		return booking, nil
	}
	if booking.Status != models.StatusPending && booking.Status != models.StatusAccepted {
		return nil, fmt.Errorf("cancel from %s: %w", booking.Status, ErrInvalidTransition)
	}

	now := time.Now()
	forfeit, err := s.settleCancellation(ctx, actor, booking, now)
	if err != nil {
		return nil, err
	}

	booking.Status = models.StatusCancelled
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "cancelled",
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
	s.Logger.Info("booking cancelled",
		zap.String("booking", booking.ID),
		zap.String("by", actor.Role),
		zap.Float64("forfeit", forfeit))
	counterparty := booking.LandlordID
	if actor.Role != models.RoleDriver {
		counterparty = booking.DriverID
	}
	s.Notifier.Notify(ctx, counterparty, models.NotifyBookingCancelled, map[string]string{
		"bookingId": booking.ID,
		"reason":    reason,
	})
	return booking, nil
}

// settleCancellation resolves the hold and returns the amount the driver
// forfeited. The hold resolves exactly once: either one release, or one
// capture followed by a partial refund.
func (s *DefaultBookingService) settleCancellation(ctx context.Context, actor models.Actor, booking *models.Booking, now time.Time) (float64, error) {
	total := booking.Pricing.TotalAmount
	holdRef := booking.Pricing.HoldRef

	// Pending bookings and landlord cancellations refund in full regardless
	// of timing.
	fullRefund := booking.Status == models.StatusPending || actor.Role != models.RoleDriver

	untilStart := booking.StartTime.Sub(now)
	if !fullRefund && untilStart >= time.Duration(s.Cfg.CancelRefundFullHours)*time.Hour {
		fullRefund = true
	}

	if fullRefund {
		if err := s.Ledger.Release(ctx, booking.DriverID, holdRef, "booking cancelled"); err != nil {
			return 0, err
		}
		booking.Pricing.PaymentStatus = models.PaymentReleased
		return 0, nil
	}

	// Late cancellation: the hold is captured into the platform account, then
	// half comes back if the driver gave enough notice.
	if err := s.Ledger.Capture(ctx, booking.DriverID, holdRef, "late cancellation"); err != nil {
		return 0, err
	}
	if _, err := s.Ledger.Credit(ctx, s.PlatformWalletID, total, booking.ID, "late cancellation capture"); err != nil {
		return 0, err
	}
	booking.Pricing.PaymentStatus = models.PaymentCaptured

	if untilStart >= time.Duration(s.Cfg.CancelRefundHalfHours)*time.Hour {
		half := utils.RoundMoney(total / 2)
		if _, err := s.Ledger.Refund(ctx, booking.DriverID, half, booking.ID, "cancellation refund"); err != nil {
			return 0, err
		}
		if _, err := s.Ledger.Debit(ctx, s.PlatformWalletID, half, booking.ID, "cancellation refund payout"); err != nil {
			return 0, err
		}
		booking.Pricing.PaymentStatus = models.PaymentPartiallyRefunded
		return utils.RoundMoney(total - half), nil
	}
	return total, nil
}
