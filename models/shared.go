package models

// Actor roles.
const (
	RoleDriver   = "driver"
	RoleLandlord = "landlord"
	RoleAdmin    = "admin"
)

// Actor identifies who is performing a core operation. Every state-changing
// call carries one; the core enforces ownership and role rules against it.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Notification kinds published to the fire-and-forget sink.
const (
	NotifyBookingCreated   = "booking_created"
	NotifyBookingAccepted  = "booking_accepted"
	NotifyBookingRejected  = "booking_rejected"
	NotifyBookingCancelled = "booking_cancelled"
	NotifyDriverArrived    = "driver_arrived"
	NotifyBookingCompleted = "booking_completed"
	NotifyOvertimeCharged  = "overtime_charged"
	NotifyBookingAbandoned = "booking_abandoned"
)
