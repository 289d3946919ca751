package pricing

import (
	"context"
	"fmt"

	"parkly/models"
	"parkly/utils"
)

// OvertimeFor bills minutes parked beyond the standard block. Partial hours
// round up; the landlord share comes from configuration. This formula is the
// single authority on overtime: auto-checkout, manual checkout, and the
// expiration resolver all go through it.
func (e *DefaultQuoteEngine) OvertimeFor(ctx context.Context, spaceID string, overtimeMinutes int) (models.OvertimeCharge, error) {
	if overtimeMinutes <= 0 {
		return models.OvertimeCharge{}, nil
	}

	tariff, err := e.Tariffs.TariffForSpace(ctx, spaceID)
	if err != nil || tariff == nil {
		return models.OvertimeCharge{}, fmt.Errorf("overtime: tariff unavailable for space %s: %w", spaceID, err)
	}

	hours := overtimeMinutes / 60
	if overtimeMinutes%60 != 0 {
		hours++
	}

	perHour := tariff.OvertimeRatePerHour + tariff.OvertimeServiceFee
	amount := utils.RoundMoney(float64(hours) * perHour)
	landlord := utils.RoundMoney(amount * e.Cfg.LandlordOvertimeShare)

	return models.OvertimeCharge{
		Minutes:       overtimeMinutes,
		BilledHours:   hours,
		Amount:        amount,
		LandlordShare: landlord,
		PlatformShare: utils.RoundMoney(amount - landlord),
	}, nil
}

// OvertimeMinutes computes how far a parking session ran past its standard
// block.
func OvertimeMinutes(actualMinutes, standardRateMinutes int) int {
	if actualMinutes <= standardRateMinutes {
		return 0
	}
	return actualMinutes - standardRateMinutes
}
