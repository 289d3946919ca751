package models

import "time"

// Geofence session phases.
const (
	PhaseEnRoute     = "en_route"
	PhaseApproaching = "approaching"
	PhaseArrived     = "arrived"
	PhaseParked      = "parked"
	PhaseDeparting   = "departing"
	PhaseExited      = "exited"
)

// Geofence event kinds emitted by the tracker.
const (
	EventApproaching    = "approaching"
	EventArrived        = "arrived"
	EventParkingStarted = "parking_started"
	EventAutoCheckout   = "auto_checkout"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// LocationSample is one raw position report from the driver's device.
type LocationSample struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy"` // meters, 0 when unknown
	Timestamp time.Time `json:"timestamp"`
}

// GeofenceEvent is a discrete state change derived from the location stream.
type GeofenceEvent struct {
	BookingID string    `json:"booking_id"`
	Kind      string    `json:"kind"`
	Distance  float64   `json:"distance"` // smoothed meters to destination
	At        time.Time `json:"at"`
}

// GeofenceSession is the ephemeral per-booking tracker state. It lives in
// Redis while the booking is trackable and dies with the booking.
type GeofenceSession struct {
	BookingID   string   `json:"booking_id"`
	Destination GeoPoint `json:"destination"`

	ApproachRadius float64 `json:"approach_radius"`
	ArrivalRadius  float64 `json:"arrival_radius"`
	ExitRadius     float64 `json:"exit_radius"`

	Phase              string     `json:"phase"`
	LastPosition       *GeoPoint  `json:"last_position,omitempty"`
	LastUpdate         time.Time  `json:"last_update"`
	SmoothedDistance   float64    `json:"smoothed_distance"`
	HasEnteredApproach bool       `json:"has_entered_approach"`
	FirstApproachAt    *time.Time `json:"first_approach_at,omitempty"`
	LastApproachAt     *time.Time `json:"last_approach_at,omitempty"`
	HasArrived         bool       `json:"has_arrived"`
	ParkingStarted     bool       `json:"parking_started"`
	ExitStreak         int        `json:"exit_streak"` // consecutive samples outside the exit radius
	OutsideSince       *time.Time `json:"outside_since,omitempty"`
	ExitCount          int        `json:"exit_count"`
	Stale              bool       `json:"stale"`

	Events []GeofenceEvent `json:"events"`
}
