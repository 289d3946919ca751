package booking

import (
	"context"
	"time"

	"parkly/models"

	"go.uber.org/zap"
)

// ExpirePending cancels pending bookings the landlord never answered,
// releasing their holds. Called periodically by the sweep worker. Each
// booking is re-read under its lock so a concurrent accept wins cleanly.
func (s *DefaultBookingService) ExpirePending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-time.Duration(s.Cfg.PendingBookingTTLMinutes) * time.Minute)
	stale, err := s.Repo.ListPendingCreatedBefore(cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if err := s.expireOne(ctx, stale[i].ID); err != nil {
			s.Logger.Error("failed to expire pending booking",
				zap.String("booking", stale[i].ID), zap.Error(err))
			continue
		}
		expired++
	}
	if expired > 0 {
		s.Logger.Info("expired pending bookings", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *DefaultBookingService) expireOne(ctx context.Context, bookingID string) error {
	s.locks.Lock(bookingID)
	defer s.locks.Unlock(bookingID)

	booking, err := s.Repo.GetByID(bookingID)
	if err != nil {
		return err
	}
	if booking.Status != models.StatusPending {
		return nil
	}

	if err := s.Ledger.Release(ctx, booking.DriverID, booking.Pricing.HoldRef, "pending booking expired"); err != nil {
		return err
	}
	booking.Status = models.StatusCancelled
	booking.Pricing.PaymentStatus = models.PaymentReleased
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "cancelled",
		ActorID:   systemActor.ID,
		ActorRole: systemActor.Role,
		Reason:    "no landlord response",
		At:        time.Now(),
	})
	if err := s.Repo.UpdateWithVersion(booking); err != nil {
		return err
	}
	s.Notifier.Notify(ctx, booking.DriverID, models.NotifyBookingCancelled, map[string]string{
		"bookingId": booking.ID,
		"reason":    "no landlord response",
	})
	return nil
}
