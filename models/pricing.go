package models

import "time"

// Pricing model tags.
const (
	PricingModelStandard = "standard"
	PricingModelFallback = "fallback"
)

// QuoteRequest carries everything the calculator needs for one quote.
type QuoteRequest struct {
	SpaceID     string
	VehicleType string
	Location    GeoPoint
	Start       time.Time
	Duration    time.Duration
	RequestedAt time.Time
}

// Quote is a deterministic price computation for one booking window.
type Quote struct {
	// Customer view.
	BaseAmount        float64 `json:"base_amount"`
	DynamicAdjustment float64 `json:"dynamic_adjustment"`
	ServiceFee        float64 `json:"service_fee"`
	Total             float64 `json:"total"`

	// Landlord and platform views.
	LandlordEarnings float64 `json:"landlord_earnings"`
	PlatformEarnings float64 `json:"platform_earnings"`
	Commission       float64 `json:"commission"`

	// Metadata.
	BaseRate       float64  `json:"base_rate"`
	Occupancy      float64  `json:"occupancy"` // 0..1 at quote time
	AppliedFactors []string `json:"applied_factors,omitempty"`
	Model          string   `json:"model"`
	Confidence     int      `json:"confidence"` // 0-100
}

// OvertimeCharge is the bill for minutes parked beyond the standard block.
// Partial hours round up.
type OvertimeCharge struct {
	Minutes       int     `json:"minutes"`
	BilledHours   int     `json:"billed_hours"`
	Amount        float64 `json:"amount"`
	LandlordShare float64 `json:"landlord_share"`
	PlatformShare float64 `json:"platform_share"`
}

// Tariff is the per-space rate card.
type Tariff struct {
	SpaceID              string   `bson:"space_id" json:"space_id"`
	BaseRatePerHour      float64  `bson:"base_rate_per_hour" json:"base_rate_per_hour"`
	OvertimeRatePerHour  float64  `bson:"overtime_rate_per_hour" json:"overtime_rate_per_hour"`
	OvertimeServiceFee   float64  `bson:"overtime_service_fee" json:"overtime_service_fee"` // per hour, on top of the overtime rate
	AcceptedVehicleTypes []string `bson:"accepted_vehicle_types" json:"accepted_vehicle_types"`
}

// AcceptsVehicle reports whether the tariff admits the given vehicle type.
func (t Tariff) AcceptsVehicle(vehicleType string) bool {
	for _, vt := range t.AcceptedVehicleTypes {
		if vt == vehicleType {
			return true
		}
	}
	return false
}
