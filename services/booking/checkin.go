package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/models"
	"parkly/services/wallet"

	"go.uber.org/zap"
)

// systemActor stamps audit records written by automatic transitions.
var systemActor = models.Actor{ID: "system", Role: "system"}

// CheckIn confirms arrival manually (QR scan at the gate or landlord
// confirmation). The geofence arrival event goes through the same settlement.
func (s *DefaultBookingService) CheckIn(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
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
	if booking.Status == models.StatusParked {
		return booking, nil
	}
	if booking.Status != models.StatusAccepted {
		return nil, fmt.Errorf("check-in from %s: %w", booking.Status, ErrInvalidTransition)
	}
	if err := s.arriveLocked(ctx, booking, actor, time.Now()); err != nil {
		return nil, err
	}
	return booking, nil
}

// arriveLocked runs the arrival settlement: capture the hold, move the funds,
// open the parking session, and flip the booking to parked. The caller holds
// the booking lock. The sequence is safe to retry: a hold captures once, and
// the persisted parked state is the commit point.
func (s *DefaultBookingService) arriveLocked(ctx context.Context, booking *models.Booking, actor models.Actor, at time.Time) error {
	if err := s.Ledger.Capture(ctx, booking.DriverID, booking.Pricing.HoldRef, "arrival capture"); err != nil {
		// A duplicate capture means a previous attempt got this far before
		// failing later in the sequence; continue from here.
		if !errors.Is(err, wallet.ErrDuplicateCapture) {
			return err
		}
		s.Logger.Warn("hold already captured, resuming arrival settlement",
			zap.String("booking", booking.ID))
		credited, err := s.escrowCredited(ctx, booking.ID)
		if err != nil {
			return err
		}
		if !credited {
			// The previous attempt died between capture and credit: the
			// driver paid but the escrow never received the funds.
			if _, err := s.Ledger.Credit(ctx, s.PlatformWalletID, booking.Pricing.TotalAmount, booking.ID, "arrival capture"); err != nil {
				return err
			}
		}
	} else {
		if _, err := s.Ledger.Credit(ctx, s.PlatformWalletID, booking.Pricing.TotalAmount, booking.ID, "arrival capture"); err != nil {
			return err
		}
	}

	booking.Status = models.StatusParked
	booking.ParkingSession = &models.ParkingSession{
		StartTime:           at,
		BillingStart:        at,
		StandardRateMinutes: s.Cfg.StandardRateMinutes,
	}
	booking.Pricing.PaymentStatus = models.PaymentCaptured
	booking.Pricing.IsPaid = true
	paidAt := at
	booking.Pricing.PaidAt = &paidAt
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "checked_in",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        at,
	})
	if err := s.Repo.UpdateWithVersion(booking); err != nil {
		return err
	}

	// Landlord payout is best effort after the commit point: a failed transfer
	// becomes a recorded obligation, never a rolled-back arrival.
	if err := s.Ledger.Transfer(ctx, s.PlatformWalletID, booking.LandlordID, booking.Pricing.LandlordEarnings, booking.ID, "booking earnings"); err != nil {
		s.Logger.Error("landlord payout failed, recording obligation",
			zap.String("booking", booking.ID),
			zap.String("landlord", booking.LandlordID),
			zap.Error(err))
		if _, oblErr := s.Ledger.RecordObligation(ctx, booking.LandlordID, booking.Pricing.LandlordEarnings, booking.ID, "deferred booking earnings"); oblErr != nil {
			s.Logger.Error("failed to record payout obligation",
				zap.String("booking", booking.ID), zap.Error(oblErr))
		}
	}

	if err := s.Tracker.MarkParked(ctx, booking.ID); err != nil {
		s.Logger.Warn("failed to mark tracker session parked",
			zap.String("booking", booking.ID), zap.Error(err))
	}
	s.Logger.Info("driver checked in",
		zap.String("booking", booking.ID),
		zap.String("by", actor.Role))
	s.Notifier.Notify(ctx, booking.LandlordID, models.NotifyDriverArrived, map[string]string{
		"bookingId": booking.ID,
		"code":      booking.Code,
	})
	return nil
}

// escrowCredited reports whether the arrival capture for this booking has
// already been credited to the platform escrow wallet.
func (s *DefaultBookingService) escrowCredited(ctx context.Context, bookingID string) (bool, error) {
	credits, err := s.Ledger.ListTransactions(ctx, s.PlatformWalletID, models.TransactionFilter{
		Kind:      models.TxCredit,
		BookingID: bookingID,
	}, 1, 1)
	if err != nil {
		return false, err
	}
	return len(credits) > 0, nil
}
