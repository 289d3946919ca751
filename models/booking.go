package models

import "time"

// Booking modes.
const (
	ModeScheduled = "scheduled"
	ModeOnDemand  = "on_demand"
)

// Booking statuses. Completed, cancelled, rejected and abandoned are final.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusParked    = "parked"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

// Payment statuses of the pricing snapshot.
const (
	PaymentPending           = "pending"
	PaymentHeld              = "held"
	PaymentCaptured          = "captured"
	PaymentReleased          = "released"
	PaymentPartiallyRefunded = "partially_refunded"
	PaymentCancelled         = "cancelled"
)

// Booking is the central aggregate: one reservation of one space by one driver.
type Booking struct {
	ID         string `bson:"id" json:"id"`
	Code       string `bson:"code" json:"code"` // short human-friendly code, e.g. "PK-4F7A2C"
	DriverID   string `bson:"driver_id" json:"driver_id"`
	LandlordID string `bson:"landlord_id" json:"landlord_id"`
	SpaceID    string `bson:"space_id" json:"space_id"`

	Vehicle VehicleRef `bson:"vehicle" json:"vehicle"`

	Mode      string    `bson:"mode" json:"mode"`
	StartTime time.Time `bson:"start_time" json:"start_time"`
	// For on-demand bookings EndTime is the ETA-plus-grace arrival deadline.
	// It bounds tracking only; billing always comes from the parking session.
	EndTime time.Time `bson:"end_time" json:"end_time"`

	ArrivalWindow  *ArrivalWindow  `bson:"arrival_window,omitempty" json:"arrival_window,omitempty"`
	ParkingSession *ParkingSession `bson:"parking_session,omitempty" json:"parking_session,omitempty"`
	Pricing        BookingPricing  `bson:"pricing" json:"pricing"`

	Status string `bson:"status" json:"status"`

	Audit []AuditRecord `bson:"audit" json:"audit"`

	// Version backs conditional updates; every persisted write bumps it.
	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// VehicleRef is the denormalized vehicle descriptor embedded in a booking.
type VehicleRef struct {
	ID    string `bson:"id" json:"id"`
	Plate string `bson:"plate" json:"plate"`
	Type  string `bson:"type" json:"type"` // e.g. "car", "motorcycle", "van"
}

// ArrivalWindow describes when an on-demand driver is expected to arrive.
type ArrivalWindow struct {
	PredictedTravelMinutes int       `bson:"predicted_travel_minutes" json:"predicted_travel_minutes"`
	GraceMinutes           int       `bson:"grace_minutes" json:"grace_minutes"`
	PredictedArrival       time.Time `bson:"predicted_arrival" json:"predicted_arrival"`
	MaxArrivalWindow       time.Time `bson:"max_arrival_window" json:"max_arrival_window"`
	Confidence             int       `bson:"confidence" json:"confidence"` // 0-100
}

// ParkingSession is the interval between confirmed arrival and confirmed exit.
// It is the only interval that is ever billed.
type ParkingSession struct {
	StartTime             time.Time  `bson:"start_time" json:"start_time"`
	EndTime               *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
	ActualDurationMinutes int        `bson:"actual_duration_minutes" json:"actual_duration_minutes"`
	StandardRateMinutes   int        `bson:"standard_rate_minutes" json:"standard_rate_minutes"`
	OvertimeMinutes       int        `bson:"overtime_minutes" json:"overtime_minutes"`
	OvertimeAmount        float64    `bson:"overtime_amount" json:"overtime_amount"`
	BillingStart          time.Time  `bson:"billing_start" json:"billing_start"`
	BillingEnd            *time.Time `bson:"billing_end,omitempty" json:"billing_end,omitempty"`
}

// BookingPricing is the pricing snapshot taken at booking time plus the
// amounts accrued on checkout.
type BookingPricing struct {
	BaseRate         float64    `bson:"base_rate" json:"base_rate"`
	TotalAmount      float64    `bson:"total_amount" json:"total_amount"`
	ServiceFee       float64    `bson:"service_fee" json:"service_fee"`
	LandlordEarnings float64    `bson:"landlord_earnings" json:"landlord_earnings"`
	PlatformEarnings float64    `bson:"platform_earnings" json:"platform_earnings"`
	OvertimeAmount   float64    `bson:"overtime_amount" json:"overtime_amount"`
	FinalTotalAmount float64    `bson:"final_total_amount" json:"final_total_amount"`
	HoldRef          string     `bson:"hold_ref,omitempty" json:"hold_ref,omitempty"`
	PaymentStatus    string     `bson:"payment_status" json:"payment_status"`
	IsPaid           bool       `bson:"is_paid" json:"is_paid"`
	PaidAt           *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
}

// AuditRecord captures one lifecycle event with its actor and reason.
type AuditRecord struct {
	Action    string    `bson:"action" json:"action"` // created, accepted, rejected, cancelled, checked_in, checked_out, resolved
	ActorID   string    `bson:"actor_id" json:"actor_id"`
	ActorRole string    `bson:"actor_role" json:"actor_role"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	At        time.Time `bson:"at" json:"at"`
}

// EffectiveEnd is when the booking should be over: the booked end for
// scheduled bookings, the end of the standard-rate block for on-demand ones
// with an open parking session. Before arrival the on-demand deadline is the
// arrival window bound in EndTime.
func (b *Booking) EffectiveEnd() time.Time {
	if b.Mode == ModeOnDemand && b.ParkingSession != nil {
		return b.ParkingSession.BillingStart.Add(time.Duration(b.ParkingSession.StandardRateMinutes) * time.Minute)
	}
	return b.EndTime
}

// IsTerminal reports whether the booking has reached a final status.
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case StatusCompleted, StatusCancelled, StatusRejected, StatusAbandoned:
		return true
	}
	return false
}
