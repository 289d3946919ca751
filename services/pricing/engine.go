package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/config"
	"parkly/models"
	"parkly/utils"

	"go.uber.org/zap"
)

// Occupancy band multipliers.
const (
	occupancyBusyThreshold = 0.5
	occupancyFullThreshold = 0.8
	occupancyBusyFactor    = 1.10
	occupancyFullFactor    = 1.25
)

// Time-of-day factors.
const (
	weekendFactor = 1.10
	holidayFactor = 1.15
	rushFactor    = 1.20
	weatherFactor = 1.10
)

// Combined multiplier clamp.
const (
	minMultiplier = 0.8
	maxMultiplier = 2.0
)

const fallbackConfidence = 25

// ErrVehicleNotAccepted is returned when the space's tariff does not admit
// the requested vehicle type.
var ErrVehicleNotAccepted = errors.New("vehicle type not accepted")

// QuoteEngine translates a booking request into a price quote. It is pure
// computation over read-only sources; it never touches the ledger.
type QuoteEngine interface {
	QuoteBooking(ctx context.Context, req models.QuoteRequest) (*models.Quote, error)
	OvertimeFor(ctx context.Context, spaceID string, overtimeMinutes int) (models.OvertimeCharge, error)
}

// DefaultQuoteEngine implements QuoteEngine against external sources.
type DefaultQuoteEngine struct {
	Tariffs   TariffSource
	Occupancy OccupancySource
	Holidays  HolidaySource
	Weather   WeatherSource
	Cfg       config.BookingConfig
	Logger    *zap.Logger
}

// QuoteBooking computes the quote for one booking window. When the tariff is
// unreachable it falls back to a conservative flat-rate quote tagged
// fallback; callers must not refuse a booking on fallback alone.
func (e *DefaultQuoteEngine) QuoteBooking(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	if req.Duration <= 0 {
		return nil, fmt.Errorf("quote: duration must be positive")
	}

	tariff, err := e.Tariffs.TariffForSpace(ctx, req.SpaceID)
	if err != nil || tariff == nil {
		e.Logger.Warn("tariff source unavailable, quoting fallback",
			zap.String("space", req.SpaceID), zap.Error(err))
		return e.fallbackQuote(req), nil
	}
	if req.VehicleType != "" && !tariff.AcceptsVehicle(req.VehicleType) {
		return nil, fmt.Errorf("quote: vehicle type %q for space %s: %w", req.VehicleType, req.SpaceID, ErrVehicleNotAccepted)
	}

	base := utils.RoundMoney(tariff.BaseRatePerHour * req.Duration.Hours())

	multiplier := 1.0
	factors := []string{}
	occupancy := 0.0

	if active, slots, occErr := e.Occupancy.Occupancy(ctx, req.SpaceID); occErr == nil && slots > 0 {
		occupancy = float64(active) / float64(slots)
		switch {
		case occupancy >= occupancyFullThreshold:
			multiplier *= occupancyFullFactor
			factors = append(factors, "occupancy_high")
		case occupancy >= occupancyBusyThreshold:
			multiplier *= occupancyBusyFactor
			factors = append(factors, "occupancy_busy")
		}
	}

	if isWeekend(req.Start) {
		multiplier *= weekendFactor
		factors = append(factors, "weekend")
	}
	if e.Holidays != nil {
		if holiday, hErr := e.Holidays.IsHoliday(ctx, req.Start); hErr == nil && holiday {
			multiplier *= holidayFactor
			factors = append(factors, "holiday")
		}
	}
	if isRushHour(req.Start) {
		multiplier *= rushFactor
		factors = append(factors, "rush_hour")
	}
	if e.Weather != nil {
		if adverse, wErr := e.Weather.IsAdverse(ctx, req.Start, req.Location); wErr == nil && adverse {
			multiplier *= weatherFactor
			factors = append(factors, "weather")
		}
	}

	multiplier = clamp(multiplier, minMultiplier, maxMultiplier)

	adjusted := utils.RoundMoney(base * multiplier)
	dynamic := utils.RoundMoney(adjusted - base)
	serviceFee := utils.RoundMoney(e.Cfg.ServiceFeeFlat + base*e.Cfg.ServiceFeeFraction)
	total := utils.RoundMoney(base + dynamic + serviceFee)

	commission := utils.RoundMoney(base * e.Cfg.PlatformCommission)
	platformSurge := utils.RoundMoney(dynamic * e.Cfg.SurgePlatformShare)
	platform := utils.RoundMoney(commission + serviceFee + platformSurge)
	landlord := utils.RoundMoney(total - platform)

	return &models.Quote{
		BaseAmount:        base,
		DynamicAdjustment: dynamic,
		ServiceFee:        serviceFee,
		Total:             total,
		LandlordEarnings:  landlord,
		PlatformEarnings:  platform,
		Commission:        commission,
		BaseRate:          tariff.BaseRatePerHour,
		Occupancy:         occupancy,
		AppliedFactors:    factors,
		Model:             models.PricingModelStandard,
		Confidence:        100,
	}, nil
}

// fallbackQuote is the conservative flat-rate quote used when inputs are
// unavailable.
func (e *DefaultQuoteEngine) fallbackQuote(req models.QuoteRequest) *models.Quote {
	const fallbackRatePerHour = 10.0

	base := utils.RoundMoney(fallbackRatePerHour * req.Duration.Hours())
	serviceFee := utils.RoundMoney(e.Cfg.ServiceFeeFlat + base*e.Cfg.ServiceFeeFraction)
	total := utils.RoundMoney(base + serviceFee)
	commission := utils.RoundMoney(base * e.Cfg.PlatformCommission)
	platform := utils.RoundMoney(commission + serviceFee)

	return &models.Quote{
		BaseAmount:       base,
		ServiceFee:       serviceFee,
		Total:            total,
		LandlordEarnings: utils.RoundMoney(total - platform),
		PlatformEarnings: platform,
		Commission:       commission,
		BaseRate:         fallbackRatePerHour,
		Model:            models.PricingModelFallback,
		Confidence:       fallbackConfidence,
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Rush hours: 07:00-09:00 and 16:00-19:00 local time.
func isRushHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 7 && h < 9) || (h >= 16 && h < 19)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
