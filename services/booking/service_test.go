package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"parkly/models"
	"parkly/services/pricing"
	"parkly/services/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fund(t *testing.T, env *testEnv, owner string, amount float64) {
	t.Helper()
	_, err := env.ledger.Credit(context.Background(), owner, amount, "", "seed")
	require.NoError(t, err)
}

func balance(t *testing.T, env *testEnv, owner string) float64 {
	t.Helper()
	available, err := env.ledger.AvailableBalance(context.Background(), owner)
	require.NoError(t, err)
	return available
}

func scheduledRequest(startIn, duration time.Duration) CreateRequest {
	start := time.Now().Add(startIn)
	return CreateRequest{
		SpaceID:   testSpace,
		VehicleID: testVehicle,
		Mode:      models.ModeScheduled,
		Start:     start.Format(time.RFC3339),
		End:       start.Add(duration).Format(time.RFC3339),
	}
}

func createScheduled(t *testing.T, env *testEnv, startIn time.Duration) *models.Booking {
	t.Helper()
	b, err := env.svc.Create(context.Background(), driverActor, scheduledRequest(startIn, 3*time.Hour))
	require.NoError(t, err)
	return b
}

func TestCreateScheduledBooking(t *testing.T) {
	env := newTestEnv()
	fund(t, env, testDriver, 100)

	b := createScheduled(t, env, 48*time.Hour)

	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, testLandlord, b.LandlordID)
	assert.Equal(t, "KAA 001A", b.Vehicle.Plate)
	assert.Contains(t, b.Code, "PK-")
	assert.Equal(t, models.PaymentHeld, b.Pricing.PaymentStatus)
	assert.NotEmpty(t, b.Pricing.HoldRef)
	assert.Equal(t, 66.8, b.Pricing.TotalAmount)
	assert.Len(t, b.Audit, 1)
	assert.Equal(t, "created", b.Audit[0].Action)

	// The quote total is earmarked.
	assert.InDelta(t, 33.2, balance(t, env, testDriver), 0.001)
	assert.True(t, env.notifier.has(models.NotifyBookingCreated))
}

func TestCreateRequiresFunds(t *testing.T) {
	env := newTestEnv()
	fund(t, env, testDriver, 10)

	_, err := env.svc.Create(context.Background(), driverActor, scheduledRequest(48*time.Hour, 3*time.Hour))
	assert.True(t, wallet.IsInsufficientFunds(err))

	list, err := env.repo.ListByDriver(testDriver, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.InDelta(t, 10, balance(t, env, testDriver), 0.001)
}

func TestCreateOnDemandWindow(t *testing.T) {
	env := newTestEnv()
	fund(t, env, testDriver, 100)

	before := time.Now()
	b, err := env.svc.Create(context.Background(), driverActor, CreateRequest{
		SpaceID:   testSpace,
		VehicleID: testVehicle,
		Mode:      models.ModeOnDemand,
		Origin:    &models.GeoPoint{Lat: 0.01, Lng: 0.01},
	})
	require.NoError(t, err)

	require.NotNil(t, b.ArrivalWindow)
	// 1200s of driving rounds to 20 minutes, plus the 15 minute grace.
	assert.Equal(t, 20, b.ArrivalWindow.PredictedTravelMinutes)
	assert.Equal(t, 15, b.ArrivalWindow.GraceMinutes)
	assert.Equal(t, 80, b.ArrivalWindow.Confidence)
	wantEnd := before.Add(35 * time.Minute)
	assert.WithinDuration(t, wantEnd, b.EndTime, 5*time.Second)
}

func TestCreateOnDemandRouterFallback(t *testing.T) {
	env := newTestEnv()
	fund(t, env, testDriver, 100)
	env.router.estimate = nil
	env.router.err = errors.New("matrix down")

	b, err := env.svc.Create(context.Background(), driverActor, CreateRequest{
		SpaceID:   testSpace,
		VehicleID: testVehicle,
		Mode:      models.ModeOnDemand,
		Origin:    &models.GeoPoint{Lat: 0.01, Lng: 0.01},
	})
	require.NoError(t, err)
	require.NotNil(t, b.ArrivalWindow)
	assert.Equal(t, 30, b.ArrivalWindow.PredictedTravelMinutes)
	assert.Equal(t, 40, b.ArrivalWindow.Confidence)
}

func TestCreateEnforcesCapacity(t *testing.T) {
	env := newTestEnv()
	fund(t, env, testDriver, 300)

	createScheduled(t, env, 48*time.Hour)
	createScheduled(t, env, 48*time.Hour)
	before := balance(t, env, testDriver)

	// Both slots taken for the window: the third request fails cleanly.
	_, err := env.svc.Create(context.Background(), driverActor, scheduledRequest(48*time.Hour, 3*time.Hour))
	assert.ErrorIs(t, err, ErrWindowUnavailable)
	assert.InDelta(t, before, balance(t, env, testDriver), 0.001)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv()
	fund(t, env, testDriver, 100)
	ctx := context.Background()

	// Only drivers create bookings.
	_, err := env.svc.Create(ctx, landlordActor, scheduledRequest(48*time.Hour, time.Hour))
	assert.ErrorIs(t, err, ErrNotAllowed)

	// Someone else's vehicle.
	env.catalog.vehicles["veh-2"] = &models.Vehicle{ID: "veh-2", OwnerID: "driver-2", Plate: "KBB 002B", Type: "car", Active: true}
	req := scheduledRequest(48*time.Hour, time.Hour)
	req.VehicleID = "veh-2"
	_, err = env.svc.Create(ctx, driverActor, req)
	assert.ErrorIs(t, err, ErrVehicleInvalid)

	// Scheduled start in the past.
	req = scheduledRequest(-time.Hour, time.Hour)
	_, err = env.svc.Create(ctx, driverActor, req)
	assert.ErrorIs(t, err, ErrValidation)

	// Unknown mode.
	req = scheduledRequest(48*time.Hour, time.Hour)
	req.Mode = "walk_in"
	_, err = env.svc.Create(ctx, driverActor, req)
	assert.ErrorIs(t, err, ErrValidation)

	// A vehicle type the space does not admit is the driver's problem, not a
	// pricing outage.
	env.quotes.err = fmt.Errorf("quote: vehicle type %q for space %s: %w", "car", testSpace, pricing.ErrVehicleNotAccepted)
	_, err = env.svc.Create(ctx, driverActor, scheduledRequest(48*time.Hour, time.Hour))
	assert.ErrorIs(t, err, ErrVehicleInvalid)
	env.quotes.err = nil
}

func TestAcceptFlow(t *testing.T) {
	env := newTestEnv()
	fund(t, env, testDriver, 100)
	ctx := context.Background()
	b := createScheduled(t, env, 48*time.Hour)

	// Only the owning landlord accepts.
	_, err := env.svc.Accept(ctx, models.Actor{ID: "landlord-2", Role: models.RoleLandlord}, b.ID)
	assert.ErrorIs(t, err, ErrNotAllowed)

	accepted, err := env.svc.Accept(ctx, landlordActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	assert.True(t, env.notifier.has(models.NotifyBookingAccepted))

	// Tracking starts at acceptance.
	session, err := env.tracker.Session(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.PhaseEnRoute, session.Phase)

	// Accepting again is a no-op.
	again, err := env.svc.Accept(ctx, landlordActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, again.Status)

	// Rejecting after acceptance is not a valid transition.
	_, err = env.svc.Reject(ctx, landlordActor, b.ID, "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectReleasesHold(t *testing.T) {
	env := newTestEnv()
	fund(t, env, testDriver, 100)
	ctx := context.Background()
	b := createScheduled(t, env, 48*time.Hour)

	rejected, err := env.svc.Reject(ctx, landlordActor, b.ID, "space flooded")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, models.PaymentReleased, rejected.Pricing.PaymentStatus)
	assert.InDelta(t, 100, balance(t, env, testDriver), 0.001)
	assert.True(t, env.notifier.has(models.NotifyBookingRejected))
}

func TestCancelRefundSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("more than 24h before start refunds in full", func(t *testing.T) {
		env := newTestEnv()
		fund(t, env, testDriver, 100)
		b := createScheduled(t, env, 48*time.Hour)
		_, err := env.svc.Accept(ctx, landlordActor, b.ID)
		require.NoError(t, err)

		cancelled, err := env.svc.Cancel(ctx, driverActor, b.ID, "plans changed")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, cancelled.Status)
		assert.Equal(t, models.PaymentReleased, cancelled.Pricing.PaymentStatus)
		assert.InDelta(t, 100, balance(t, env, testDriver), 0.001)
	})

	t.Run("between 2h and 24h refunds half", func(t *testing.T) {
		env := newTestEnv()
		fund(t, env, testDriver, 100)
		b := createScheduled(t, env, 3*time.Hour)
		_, err := env.svc.Accept(ctx, landlordActor, b.ID)
		require.NoError(t, err)

		cancelled, err := env.svc.Cancel(ctx, driverActor, b.ID, "plans changed")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPartiallyRefunded, cancelled.Pricing.PaymentStatus)
		assert.InDelta(t, 66.6, balance(t, env, testDriver), 0.001)
		assert.InDelta(t, 33.4, balance(t, env, testPlatform), 0.001)
	})

	t.Run("under 2h forfeits everything", func(t *testing.T) {
		env := newTestEnv()
		fund(t, env, testDriver, 100)
		b := createScheduled(t, env, time.Hour)
		_, err := env.svc.Accept(ctx, landlordActor, b.ID)
		require.NoError(t, err)

		cancelled, err := env.svc.Cancel(ctx, driverActor, b.ID, "plans changed")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCaptured, cancelled.Pricing.PaymentStatus)
		assert.InDelta(t, 33.2, balance(t, env, testDriver), 0.001)
		assert.InDelta(t, 66.8, balance(t, env, testPlatform), 0.001)
	})

	t.Run("landlord cancellation always refunds in full", func(t *testing.T) {
		env := newTestEnv()
		fund(t, env, testDriver, 100)
		b := createScheduled(t, env, time.Hour)
		_, err := env.svc.Accept(ctx, landlordActor, b.ID)
		require.NoError(t, err)

		cancelled, err := env.svc.Cancel(ctx, landlordActor, b.ID, "space unavailable")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentReleased, cancelled.Pricing.PaymentStatus)
		assert.InDelta(t, 100, balance(t, env, testDriver), 0.001)
	})

	t.Run("cancelling a pending booking releases the hold", func(t *testing.T) {
		env := newTestEnv()
		fund(t, env, testDriver, 100)
		b := createScheduled(t, env, time.Hour)

		cancelled, err := env.svc.Cancel(ctx, driverActor, b.ID, "typo")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentReleased, cancelled.Pricing.PaymentStatus)
		assert.InDelta(t, 100, balance(t, env, testDriver), 0.001)
	})
}

func acceptedBooking(t *testing.T, env *testEnv) *models.Booking {
	t.Helper()
	fund(t, env, testDriver, 100)
	b := createScheduled(t, env, time.Hour)
	accepted, err := env.svc.Accept(context.Background(), landlordActor, b.ID)
	require.NoError(t, err)
	return accepted
}

func TestCheckInSettlement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)

	parked, err := env.svc.CheckIn(ctx, driverActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusParked, parked.Status)
	assert.Equal(t, models.PaymentCaptured, parked.Pricing.PaymentStatus)
	assert.True(t, parked.Pricing.IsPaid)
	require.NotNil(t, parked.ParkingSession)
	assert.Equal(t, 180, parked.ParkingSession.StandardRateMinutes)

	// Money: total left the driver at hold time; landlord got their share,
	// the platform keeps the rest.
	assert.InDelta(t, 33.2, balance(t, env, testDriver), 0.001)
	assert.InDelta(t, 54, balance(t, env, testLandlord), 0.001)
	assert.InDelta(t, 12.8, balance(t, env, testPlatform), 0.001)
	assert.True(t, env.notifier.has(models.NotifyDriverArrived))

	session, err := env.tracker.Session(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, session.ParkingStarted)

	// Repeating check-in moves no more money.
	_, err = env.svc.CheckIn(ctx, driverActor, b.ID)
	require.NoError(t, err)
	assert.InDelta(t, 54, balance(t, env, testLandlord), 0.001)
}

func TestCheckOutWithoutOvertime(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)
	_, err := env.svc.CheckIn(ctx, driverActor, b.ID)
	require.NoError(t, err)

	done, err := env.svc.CheckOut(ctx, driverActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.ParkingSession.EndTime)
	assert.Zero(t, done.Pricing.OvertimeAmount)
	assert.InDelta(t, 33.2, balance(t, env, testDriver), 0.001)
	assert.True(t, env.notifier.has(models.NotifyBookingCompleted))

	// The tracker session dies with the booking.
	session, err := env.tracker.Session(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, session)

	// Checking out again is a no-op.
	_, err = env.svc.CheckOut(ctx, driverActor, b.ID)
	require.NoError(t, err)
}

// backdate rewrites the parked booking as an on-demand session that started
// minutesAgo, so overtime math has something to bite on.
func backdate(t *testing.T, env *testEnv, bookingID string, minutesAgo int) {
	t.Helper()
	b, err := env.repo.GetByID(bookingID)
	require.NoError(t, err)
	b.Mode = models.ModeOnDemand
	b.ParkingSession.StartTime = time.Now().Add(-time.Duration(minutesAgo) * time.Minute)
	b.ParkingSession.BillingStart = b.ParkingSession.StartTime
	require.NoError(t, env.repo.UpdateWithVersion(b))
}

func TestCheckOutBillsOvertime(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)
	_, err := env.svc.CheckIn(ctx, driverActor, b.ID)
	require.NoError(t, err)

	// 200 minutes parked against a 180 minute block: 20 minutes over.
	backdate(t, env, b.ID, 200)

	done, err := env.svc.CheckOut(ctx, driverActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, 17.0, done.Pricing.OvertimeAmount)
	assert.Equal(t, 83.8, done.Pricing.FinalTotalAmount)
	assert.InDelta(t, 20, done.ParkingSession.OvertimeMinutes, 1)

	assert.InDelta(t, 33.2-17, balance(t, env, testDriver), 0.001)
	assert.InDelta(t, 54+14.45, balance(t, env, testLandlord), 0.001)
	assert.InDelta(t, 12.8+2.55, balance(t, env, testPlatform), 0.001)
	assert.True(t, env.notifier.has(models.NotifyOvertimeCharged))
}

func TestCheckOutOutsideToleranceWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)
	_, err := env.svc.CheckIn(ctx, driverActor, b.ID)
	require.NoError(t, err)

	// Six hours parked: three hours past the block plus the two hour
	// tolerance, so the resolver owns it now.
	backdate(t, env, b.ID, 6*60)

	_, err = env.svc.CheckOut(ctx, driverActor, b.ID)
	assert.ErrorIs(t, err, ErrCheckoutWindowExceeded)
}

func TestGeofenceDrivesArrivalAndAutoCheckout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)
	base := time.Now()

	send := func(meters float64, at time.Time) {
		t.Helper()
		lat := meters / 111194.92664455873
		err := env.svc.HandleLocationUpdate(ctx, driverActor, b.ID, models.LocationSample{
			Lat: lat, Lng: 0, Timestamp: at,
		})
		require.NoError(t, err)
	}

	send(2000, base)
	send(400, base.Add(time.Minute))

	// Crossing the arrival radius settles the booking without a QR scan.
	send(30, base.Add(2*time.Minute))
	parked, err := env.repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusParked, parked.Status)
	assert.InDelta(t, 54, balance(t, env, testLandlord), 0.001)

	// Two confirmed exits plus the dwell complete the booking.
	send(150, base.Add(3*time.Minute))
	send(180, base.Add(3*time.Minute+10*time.Second))
	send(220, base.Add(4*time.Minute+10*time.Second))

	done, err := env.repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Zero(t, done.Pricing.OvertimeAmount)
}

func TestArrivalRetriesAfterSettlementFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)
	env.svc.Ledger = &flakyLedger{LedgerService: env.ledger, failCredits: 1}
	base := time.Now()

	inFence := func(at time.Time) models.LocationSample {
		return models.LocationSample{Lat: 30 / 111194.92664455873, Lng: 0, Timestamp: at}
	}

	// The hold captures, then the escrow credit fails: the arrival errors and
	// the booking stays accepted.
	err := env.svc.HandleLocationUpdate(ctx, driverActor, b.ID, inFence(base))
	require.Error(t, err)
	stuck, err := env.repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stuck.Status)
	assert.Zero(t, balance(t, env, testLandlord))

	// The driver keeps reporting from inside the fence. The next sample
	// re-drives the settlement from where the last attempt died; the hold
	// captures only once and the escrow is credited exactly once.
	err = env.svc.HandleLocationUpdate(ctx, driverActor, b.ID, inFence(base.Add(10*time.Second)))
	require.NoError(t, err)

	parked, err := env.repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusParked, parked.Status)
	assert.Equal(t, models.PaymentCaptured, parked.Pricing.PaymentStatus)
	assert.InDelta(t, 33.2, balance(t, env, testDriver), 0.001)
	assert.InDelta(t, 54, balance(t, env, testLandlord), 0.001)
	assert.InDelta(t, 12.8, balance(t, env, testPlatform), 0.001)
}

func TestCheckOutFromAcceptedSettlesArrivalFirst(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	fund(t, env, testDriver, 100)

	b, err := env.svc.Create(ctx, driverActor, CreateRequest{
		SpaceID:   testSpace,
		VehicleID: testVehicle,
		Mode:      models.ModeOnDemand,
		Origin:    &models.GeoPoint{Lat: 0.01, Lng: 0.01},
	})
	require.NoError(t, err)
	_, err = env.svc.Accept(ctx, landlordActor, b.ID)
	require.NoError(t, err)

	// The driver parked without crossing the geofence or scanning at the
	// gate: checkout settles the arrival first, then completes.
	done, err := env.svc.CheckOut(ctx, driverActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, models.PaymentCaptured, done.Pricing.PaymentStatus)
	require.NotNil(t, done.ParkingSession)
	require.NotNil(t, done.ParkingSession.EndTime)
	assert.Zero(t, done.Pricing.OvertimeAmount)

	assert.InDelta(t, 33.2, balance(t, env, testDriver), 0.001)
	assert.InDelta(t, 54, balance(t, env, testLandlord), 0.001)
	assert.InDelta(t, 12.8, balance(t, env, testPlatform), 0.001)
}

func TestCheckOutBeforeStartRefused(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Accepted scheduled booking an hour before its window opens.
	b := acceptedBooking(t, env)

	_, err := env.svc.CheckOut(ctx, driverActor, b.ID)
	assert.ErrorIs(t, err, ErrCheckoutWindowExceeded)

	after, err := env.repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, after.Status)
	assert.InDelta(t, 33.2, balance(t, env, testDriver), 0.001)
}

func TestLocationUpdateIgnoredForUntrackedStatuses(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	fund(t, env, testDriver, 100)
	b := createScheduled(t, env, 48*time.Hour)

	// Pending bookings are not tracked; the sample is dropped silently.
	err := env.svc.HandleLocationUpdate(ctx, driverActor, b.ID, models.LocationSample{
		Lat: 0.001, Lng: 0, Timestamp: time.Now(),
	})
	require.NoError(t, err)

	session, err := env.tracker.Session(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestExpirePendingReleasesHolds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	fund(t, env, testDriver, 100)
	b := createScheduled(t, env, 48*time.Hour)

	// Age the booking past the pending TTL.
	env.repo.mu.Lock()
	stored := env.repo.bookings[b.ID]
	stored.CreatedAt = time.Now().Add(-45 * time.Minute)
	env.repo.bookings[b.ID] = stored
	env.repo.mu.Unlock()

	expired, err := env.svc.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	after, err := env.repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, after.Status)
	assert.Equal(t, models.PaymentReleased, after.Pricing.PaymentStatus)
	assert.InDelta(t, 100, balance(t, env, testDriver), 0.001)
}

func TestMarkAbandonedNoShow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)

	abandoned, err := env.svc.MarkAbandoned(ctx, landlordActor, b.ID, 50, "driver never arrived")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAbandoned, abandoned.Status)
	assert.Equal(t, models.PaymentReleased, abandoned.Pricing.PaymentStatus)

	// The hold released in full; the penalty is a separate debit.
	assert.InDelta(t, 50, balance(t, env, testDriver), 0.001)
	assert.InDelta(t, 50, balance(t, env, testPlatform), 0.001)
	assert.True(t, env.notifier.has(models.NotifyBookingAbandoned))

	// Marking again changes nothing.
	_, err = env.svc.MarkAbandoned(ctx, landlordActor, b.ID, 50, "again")
	require.NoError(t, err)
	assert.InDelta(t, 50, balance(t, env, testDriver), 0.001)
}

func TestForceCheckOutBillsOvertime(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)
	_, err := env.svc.CheckIn(ctx, driverActor, b.ID)
	require.NoError(t, err)
	backdate(t, env, b.ID, 6*60)

	// Far outside the tolerance window, but the resolver may force it.
	done, err := env.svc.ForceCheckOut(ctx, landlordActor, b.ID, "resolver manual checkout")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, 17.0, done.Pricing.OvertimeAmount)
}

func TestAdminOverride(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	b := acceptedBooking(t, env)

	charge := 25.0
	done, err := env.svc.AdminOverride(ctx, adminActor, b.ID, &charge, models.StatusCompleted, "dispute settled")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)

	// Open hold released, then the explicit charge applied.
	assert.InDelta(t, 75, balance(t, env, testDriver), 0.001)
	assert.InDelta(t, 25, balance(t, env, testPlatform), 0.001)

	// Terminal bookings cannot be overridden again.
	_, err = env.svc.AdminOverride(ctx, adminActor, b.ID, nil, models.StatusCancelled, "oops")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestQueriesEnforceOwnership(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	fund(t, env, testDriver, 100)
	b := createScheduled(t, env, 48*time.Hour)

	_, err := env.svc.GetByID(ctx, models.Actor{ID: "stranger", Role: models.RoleDriver}, b.ID)
	assert.ErrorIs(t, err, ErrNotAllowed)

	got, err := env.svc.GetByID(ctx, landlordActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	mine, err := env.svc.ListForDriver(ctx, driverActor, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := env.svc.ListForLandlord(ctx, landlordActor, 0)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
