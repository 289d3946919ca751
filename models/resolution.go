package models

import "time"

// Expiration window classifications.
const (
	WindowStandard = "standard"
	WindowExtended = "extended"
	WindowLongTerm = "long_term"
	WindowCritical = "critical"
)

// Resolutions the expiration resolver may execute on a stalled booking.
const (
	ResolutionGenerateQR      = "generate_qr_with_overtime"
	ResolutionManualCheckout  = "manual_checkout"
	ResolutionMarkAbandoned   = "mark_abandoned"
	ResolutionEscalateSupport = "escalate_to_support"
	ResolutionAdminOverride   = "admin_override"
)

// ExpirationAnalysis is the resolver's verdict on a booking stalled past its
// window.
type ExpirationAnalysis struct {
	BookingID          string         `json:"booking_id"`
	Classification     string         `json:"classification"`
	ElapsedBeyondEnd   time.Duration  `json:"elapsed_beyond_end"`
	Overtime           OvertimeCharge `json:"overtime"`
	Penalty            float64        `json:"penalty"`
	AllowedResolutions []string       `json:"allowed_resolutions"`
	Recommended        string         `json:"recommended"`
	AnalyzedAt         time.Time      `json:"analyzed_at"`
}

// ResolutionRequest is the instruction to execute one resolution.
type ResolutionRequest struct {
	BookingID  string `json:"booking_id"`
	Resolution string `json:"resolution"`
	Reason     string `json:"reason,omitempty"`

	// Admin override only: explicit charges and target status.
	OverrideCharge *float64 `json:"override_charge,omitempty"`
	OverrideStatus string   `json:"override_status,omitempty"`
}
