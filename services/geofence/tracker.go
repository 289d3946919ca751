package geofence

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

// ErrNoSession is returned when a sample arrives for a booking without a
// tracker session. The booking state machine reacts by lazily creating one
// for bookings that should be tracked.
var ErrNoSession = errors.New("no geofence session")

const (
	smoothingNewWeight = 0.6
	maxStoredEvents    = 50
)

// Tracker classifies per-booking location streams into discrete events.
// Sessions progress independently; work on a single session is serialized.
type Tracker struct {
	Store  SessionStore
	Cfg    config.BookingConfig
	Logger *zap.Logger

	locks *utils.KeyedMutex
}

// NewTracker builds a tracker over the given session store.
func NewTracker(store SessionStore, cfg config.BookingConfig, logger *zap.Logger) *Tracker {
	return &Tracker{
		Store:  store,
		Cfg:    cfg,
		Logger: logger,
		locks:  utils.NewKeyedMutex(),
	}
}

// EnsureSession creates the session for a booking if it does not exist yet.
func (t *Tracker) EnsureSession(ctx context.Context, bookingID string, destination models.GeoPoint) error {
	t.locks.Lock(bookingID)
	defer t.locks.Unlock(bookingID)

	session, err := t.Store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if session != nil {
		return nil
	}
	session = &models.GeofenceSession{
		BookingID:      bookingID,
		Destination:    destination,
		ApproachRadius: t.Cfg.ApproachRadiusMeters,
		ArrivalRadius:  t.Cfg.ArrivalRadiusMeters,
		ExitRadius:     t.Cfg.ExitRadiusMeters,
		Phase:          models.PhaseEnRoute,
	}
	return t.Store.Save(ctx, session)
}

// Process feeds one sample into the booking's session and returns the event
// it produced, if any. Replayed and out-of-order samples are discarded.
func (t *Tracker) Process(ctx context.Context, bookingID string, sample models.LocationSample) (*models.GeofenceEvent, error) {
	if !utils.ValidCoordinate(sample.Lat, sample.Lng) {
		return nil, fmt.Errorf("invalid coordinates (%f, %f)", sample.Lat, sample.Lng)
	}

	t.locks.Lock(bookingID)
	defer t.locks.Unlock(bookingID)

	session, err := t.Store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}

	// Monotonic stream: anything at or before the last accepted sample is a
	// replay or arrived out of order.
	if !session.LastUpdate.IsZero() && !sample.Timestamp.After(session.LastUpdate) {
		return nil, nil
	}

	distance := utils.HaversineMeters(sample.Lat, sample.Lng, session.Destination.Lat, session.Destination.Lng)
	if session.LastPosition == nil {
		session.SmoothedDistance = distance
	} else {
		session.SmoothedDistance = smoothingNewWeight*distance + (1-smoothingNewWeight)*session.SmoothedDistance
	}
	session.LastPosition = &models.GeoPoint{Lat: sample.Lat, Lng: sample.Lng}
	session.LastUpdate = sample.Timestamp
	session.Stale = false

	event := t.advance(session, distance, sample.Timestamp)
	if event != nil {
		session.Events = appendEvent(session.Events, *event)
		t.Logger.Info("geofence event",
			zap.String("booking", bookingID),
			zap.String("kind", event.Kind),
			zap.Float64("distance", distance))
	}

	if err := t.Store.Save(ctx, session); err != nil {
		return nil, err
	}
	return event, nil
}

// advance runs the session state machine on one accepted sample. Raw
// distance drives the thresholds; the smoothed value is telemetry.
func (t *Tracker) advance(session *models.GeofenceSession, distance float64, at time.Time) *models.GeofenceEvent {
	switch session.Phase {
	case models.PhaseEnRoute:
		if distance <= session.ApproachRadius {
			session.Phase = models.PhaseApproaching
			session.HasEnteredApproach = true
			ts := at
			session.FirstApproachAt = &ts
			session.LastApproachAt = &ts
			// The same sample may already satisfy arrival.
			if arrived := t.tryArrive(session, distance, at); arrived != nil {
				return arrived
			}
			return t.event(session, models.EventApproaching, distance, at)
		}

	case models.PhaseApproaching:
		ts := at
		session.LastApproachAt = &ts
		if arrived := t.tryArrive(session, distance, at); arrived != nil {
			return arrived
		}

	case models.PhaseArrived:
		// Waiting for the state machine to acknowledge and start the
		// parking session.

	case models.PhaseParked:
		if distance > session.ExitRadius {
			session.ExitStreak++
			if session.OutsideSince == nil {
				ts := at
				session.OutsideSince = &ts
			}
			if session.ExitStreak >= t.Cfg.ExitConfirmationSamples {
				session.Phase = models.PhaseDeparting
			}
		} else {
			session.ExitStreak = 0
			session.OutsideSince = nil
		}

	case models.PhaseDeparting:
		if distance <= session.ExitRadius {
			// Back inside: GPS jitter, not a departure.
			session.Phase = models.PhaseParked
			session.ExitStreak = 0
			session.OutsideSince = nil
			return nil
		}
		if session.OutsideSince != nil && at.Sub(*session.OutsideSince) >= time.Duration(t.Cfg.ExitDwellSeconds)*time.Second {
			session.Phase = models.PhaseExited
			session.ExitCount++
			return t.event(session, models.EventAutoCheckout, distance, at)
		}

	case models.PhaseExited:
		// Terminal for the tracker; the booking is being completed.
	}
	return nil
}

func (t *Tracker) tryArrive(session *models.GeofenceSession, distance float64, at time.Time) *models.GeofenceEvent {
	// A sample exactly on the arrival radius counts as arrival.
	if distance > session.ArrivalRadius || session.HasArrived {
		return nil
	}
	session.Phase = models.PhaseArrived
	session.HasArrived = true
	return t.event(session, models.EventArrived, distance, at)
}

// MarkParked acknowledges arrival: exit detection begins from here.
func (t *Tracker) MarkParked(ctx context.Context, bookingID string) error {
	t.locks.Lock(bookingID)
	defer t.locks.Unlock(bookingID)

	session, err := t.Store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrNoSession
	}
	if session.ParkingStarted {
		return nil
	}
	session.Phase = models.PhaseParked
	session.ParkingStarted = true
	session.ExitStreak = 0
	session.OutsideSince = nil
	session.Events = appendEvent(session.Events, models.GeofenceEvent{
		BookingID: bookingID,
		Kind:      models.EventParkingStarted,
		Distance:  session.SmoothedDistance,
		At:        time.Now(),
	})
	return t.Store.Save(ctx, session)
}

// EndSession destroys the session when its booking terminates.
func (t *Tracker) EndSession(ctx context.Context, bookingID string) error {
	t.locks.Lock(bookingID)
	defer t.locks.Unlock(bookingID)
	return t.Store.Delete(ctx, bookingID)
}

// Session returns a copy of the current session state, or nil.
func (t *Tracker) Session(ctx context.Context, bookingID string) (*models.GeofenceSession, error) {
	return t.Store.Get(ctx, bookingID)
}

// MarkStaleSessions flags sessions whose stream went silent for longer than
// the configured threshold; the expiration resolver may act on them.
func (t *Tracker) MarkStaleSessions(ctx context.Context) (int, error) {
	ids, err := t.Store.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	threshold := time.Duration(t.Cfg.TrackerStaleMinutes) * time.Minute
	marked := 0
	for _, id := range ids {
		t.locks.Lock(id)
		session, err := t.Store.Get(ctx, id)
		if err != nil || session == nil || session.Stale {
			t.locks.Unlock(id)
			continue
		}
		if !session.LastUpdate.IsZero() && time.Since(session.LastUpdate) > threshold {
			session.Stale = true
			if err := t.Store.Save(ctx, session); err == nil {
				marked++
			}
		}
		t.locks.Unlock(id)
	}
	return marked, nil
}

func (t *Tracker) event(session *models.GeofenceSession, kind string, distance float64, at time.Time) *models.GeofenceEvent {
	return &models.GeofenceEvent{
		BookingID: session.BookingID,
		Kind:      kind,
		Distance:  distance,
		At:        at,
	}
}

func appendEvent(events []models.GeofenceEvent, event models.GeofenceEvent) []models.GeofenceEvent {
	events = append(events, event)
	if len(events) > maxStoredEvents {
		events = events[len(events)-maxStoredEvents:]
	}
	return events
}
