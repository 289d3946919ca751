package resolver

import (
	"context"
	"fmt"
	"time"

	"parkly/models"
	"parkly/utils"

	"go.uber.org/zap"
)

// Classification thresholds in hours beyond the booking's end.
const (
	standardMaxHours = 1
	extendedMaxHours = 6
	longTermMaxHours = 48
)

// Penalty fractions of the booking total by classification.
const (
	extendedPenaltyFraction = 0.25
	longTermPenaltyFraction = 0.50
)

var systemActor = models.Actor{ID: "system", Role: "system"}

// Analyze classifies a stalled booking and proposes resolutions. Read-only:
// nothing moves until Execute.
func (r *DefaultResolver) Analyze(ctx context.Context, actor models.Actor, bookingID string) (*models.ExpirationAnalysis, error) {
	booking, err := r.Repo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(actor, booking); err != nil {
		return nil, err
	}
	return r.analyze(ctx, booking, time.Now())
}

func (r *DefaultResolver) analyze(ctx context.Context, booking *models.Booking, now time.Time) (*models.ExpirationAnalysis, error) {
	if booking.IsTerminal() {
		return nil, fmt.Errorf("booking %s is %s: %w", booking.ID, booking.Status, ErrNotStalled)
	}
	elapsed := now.Sub(booking.EffectiveEnd())
	if elapsed <= 0 {
		return nil, fmt.Errorf("booking %s is still inside its window: %w", booking.ID, ErrNotStalled)
	}

	analysis := &models.ExpirationAnalysis{
		BookingID:        booking.ID,
		ElapsedBeyondEnd: elapsed,
		AnalyzedAt:       now,
	}

	hours := elapsed.Hours()
	switch {
	case hours < standardMaxHours:
		analysis.Classification = models.WindowStandard
		analysis.AllowedResolutions = []string{models.ResolutionGenerateQR, models.ResolutionManualCheckout}
		analysis.Recommended = models.ResolutionGenerateQR
	case hours < extendedMaxHours:
		analysis.Classification = models.WindowExtended
		analysis.Penalty = utils.RoundMoney(booking.Pricing.TotalAmount * extendedPenaltyFraction)
		analysis.AllowedResolutions = []string{models.ResolutionGenerateQR, models.ResolutionManualCheckout, models.ResolutionMarkAbandoned}
		analysis.Recommended = models.ResolutionManualCheckout
	case hours < longTermMaxHours:
		analysis.Classification = models.WindowLongTerm
		analysis.Penalty = utils.RoundMoney(booking.Pricing.TotalAmount * longTermPenaltyFraction)
		analysis.AllowedResolutions = []string{models.ResolutionManualCheckout, models.ResolutionMarkAbandoned, models.ResolutionEscalateSupport}
		analysis.Recommended = models.ResolutionMarkAbandoned
	default:
		analysis.Classification = models.WindowCritical
		analysis.Penalty = r.Cfg.AbandonmentPenalty
		analysis.AllowedResolutions = []string{models.ResolutionMarkAbandoned, models.ResolutionEscalateSupport}
		analysis.Recommended = models.ResolutionEscalateSupport
	}
	if analysis.Penalty > booking.Pricing.TotalAmount {
		analysis.Penalty = booking.Pricing.TotalAmount
	}
	analysis.AllowedResolutions = append(analysis.AllowedResolutions, models.ResolutionAdminOverride)

	// Overtime only accrues on an open parking session.
	if booking.Status == models.StatusParked && booking.ParkingSession != nil {
		minutes := int(elapsed.Minutes())
		if elapsed%time.Minute != 0 {
			minutes++
		}
		charge, err := r.Quotes.OvertimeFor(ctx, booking.SpaceID, minutes)
		if err != nil {
			r.Logger.Warn("overtime estimate unavailable",
				zap.String("booking", booking.ID), zap.Error(err))
		} else {
			analysis.Overtime = charge
		}
	}
	return analysis, nil
}

// Execute runs one resolution after checking it is allowed for the booking's
// current classification.
func (r *DefaultResolver) Execute(ctx context.Context, actor models.Actor, req models.ResolutionRequest) (*models.Booking, error) {
	booking, err := r.Repo.GetByID(req.BookingID)
	if err != nil {
		return nil, err
	}
	if err := r.authorize(actor, booking); err != nil {
		return nil, err
	}
	if req.Resolution == models.ResolutionAdminOverride && actor.Role != models.RoleAdmin {
		return nil, ErrNotAllowed
	}

	analysis, err := r.analyze(ctx, booking, time.Now())
	if err != nil {
		return nil, err
	}
	if !contains(analysis.AllowedResolutions, req.Resolution) {
		return nil, fmt.Errorf("%s not allowed for %s booking: %w",
			req.Resolution, analysis.Classification, ErrInvalidResolution)
	}

	switch req.Resolution {
	case models.ResolutionGenerateQR:
		// The grant itself moves no money; overtime bills when the QR is
		// scanned and the forced checkout runs. The grant still leaves an
		// audit trail on the booking.
		if err := r.recordResolution(booking, actor, reasonOr(req.Reason, "late checkout QR issued")); err != nil {
			return nil, err
		}
		r.Logger.Info("late checkout QR issued",
			zap.String("booking", booking.ID),
			zap.String("code", booking.Code),
			zap.Float64("overtime_due", analysis.Overtime.Amount))
		return booking, nil

	case models.ResolutionManualCheckout:
		return r.Engine.ForceCheckOut(ctx, actor, booking.ID, reasonOr(req.Reason, "resolver manual checkout"))

	case models.ResolutionMarkAbandoned:
		return r.Engine.MarkAbandoned(ctx, actor, booking.ID, analysis.Penalty, reasonOr(req.Reason, "resolver abandonment"))

	case models.ResolutionEscalateSupport:
		if err := r.recordResolution(booking, actor, reasonOr(req.Reason, "escalated to support")); err != nil {
			return nil, err
		}
		r.Logger.Warn("booking escalated to support",
			zap.String("booking", booking.ID),
			zap.String("classification", analysis.Classification),
			zap.String("reason", req.Reason))
		return booking, nil

	case models.ResolutionAdminOverride:
		return r.Engine.AdminOverride(ctx, actor, booking.ID, req.OverrideCharge, req.OverrideStatus, reasonOr(req.Reason, "admin override"))

	default:
		return nil, fmt.Errorf("unknown resolution %q: %w", req.Resolution, ErrInvalidResolution)
	}
}

// SweepStalled auto-abandons no-shows stalled beyond the extended threshold
// and logs everything else for a human. Parked bookings are never terminated
// automatically; a car may genuinely still be in the space.
func (r *DefaultResolver) SweepStalled(ctx context.Context) (int, error) {
	now := time.Now()
	stalled, err := r.Repo.ListStalled(now)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range stalled {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		b := &stalled[i]
		analysis, err := r.analyze(ctx, b, now)
		if err != nil {
			continue
		}
		if b.Status == models.StatusAccepted && analysis.Classification != models.WindowStandard {
			if _, err := r.Engine.MarkAbandoned(ctx, systemActor, b.ID, analysis.Penalty, "no-show sweep"); err != nil {
				r.Logger.Error("sweep failed to abandon no-show",
					zap.String("booking", b.ID), zap.Error(err))
				continue
			}
			resolved++
			continue
		}
		r.Logger.Info("stalled booking awaiting resolution",
			zap.String("booking", b.ID),
			zap.String("status", b.Status),
			zap.String("classification", analysis.Classification))
	}
	return resolved, nil
}

// recordResolution persists an audit record for resolutions that change no
// booking state themselves.
func (r *DefaultResolver) recordResolution(booking *models.Booking, actor models.Actor, reason string) error {
	booking.Audit = append(booking.Audit, models.AuditRecord{
		Action:    "resolved",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Reason:    reason,
		At:        time.Now(),
	})
	return r.Repo.UpdateWithVersion(booking)
}

func (r *DefaultResolver) authorize(actor models.Actor, booking *models.Booking) error {
	switch actor.Role {
	case models.RoleAdmin, "system":
		return nil
	case models.RoleLandlord:
		if actor.ID == booking.LandlordID {
			return nil
		}
	}
	return ErrNotAllowed
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
