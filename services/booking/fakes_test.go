package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"parkly/config"
	bookingRepo "parkly/database/repository/booking"
	walletRepo "parkly/database/repository/wallet"
	"parkly/models"
	"parkly/services/eta"
	"parkly/services/geofence"
	"parkly/services/wallet"

	"go.uber.org/zap"
)

// --- booking repository fake ---

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]models.Booking)}
}

func copyBooking(b models.Booking) models.Booking {
	out := b
	out.Audit = append([]models.AuditRecord(nil), b.Audit...)
	if b.ArrivalWindow != nil {
		w := *b.ArrivalWindow
		out.ArrivalWindow = &w
	}
	if b.ParkingSession != nil {
		s := *b.ParkingSession
		out.ParkingSession = &s
	}
	return out
}

func (r *memBookingRepo) Create(booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	r.bookings[booking.ID] = copyBooking(*booking)
	return nil
}

func (r *memBookingRepo) GetByID(id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	out := copyBooking(b)
	return &out, nil
}

func (r *memBookingRepo) GetByCode(code string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.Code == code {
			out := copyBooking(b)
			return &out, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *memBookingRepo) UpdateWithVersion(booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[booking.ID]
	if !ok || stored.Version != booking.Version {
		return bookingRepo.ErrVersionConflict
	}
	booking.Version++
	booking.UpdatedAt = time.Now()
	r.bookings[booking.ID] = copyBooking(*booking)
	return nil
}

func isNonTerminal(status string) bool {
	switch status {
	case models.StatusPending, models.StatusAccepted, models.StatusParked:
		return true
	}
	return false
}

func (r *memBookingRepo) CountOverlapping(spaceID string, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if b.SpaceID != spaceID || !isNonTerminal(b.Status) {
			continue
		}
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			n++
		}
	}
	return n, nil
}

func (r *memBookingRepo) ListPendingCreatedBefore(cutoff time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status == models.StatusPending && b.CreatedAt.Before(cutoff) {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

func (r *memBookingRepo) ListStalled(cutoff time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if (b.Status == models.StatusAccepted || b.Status == models.StatusParked) && b.EndTime.Before(cutoff) {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

func (r *memBookingRepo) listBy(match func(models.Booking) bool, limit int64) []models.Booking {
	var out []models.Booking
	for _, b := range r.bookings {
		if match(b) {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (r *memBookingRepo) ListByDriver(driverID string, limit int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listBy(func(b models.Booking) bool { return b.DriverID == driverID }, limit), nil
}

func (r *memBookingRepo) ListByLandlord(landlordID string, limit int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listBy(func(b models.Booking) bool { return b.LandlordID == landlordID }, limit), nil
}

// --- wallet repository fake (conditional-replace semantics in memory) ---

type memWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]models.Wallet
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{wallets: make(map[string]models.Wallet)}
}

func copyWallet(w models.Wallet) models.Wallet {
	out := w
	out.Transactions = append([]models.WalletTransaction(nil), w.Transactions...)
	return out
}

func (r *memWalletRepo) GetByOwner(ownerID string) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[ownerID]
	if !ok {
		return nil, walletRepo.ErrNotFound
	}
	out := copyWallet(w)
	return &out, nil
}

func (r *memWalletRepo) Create(w *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.Version = 1
	r.wallets[w.OwnerID] = copyWallet(*w)
	return nil
}

func (r *memWalletRepo) SaveWithVersion(w *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveOne(w)
}

func (r *memWalletRepo) SaveBoth(a, b *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveOne(a); err != nil {
		return err
	}
	if err := r.saveOne(b); err != nil {
		a.Version--
		stored := r.wallets[a.OwnerID]
		stored.Version = a.Version
		r.wallets[a.OwnerID] = stored
		return err
	}
	return nil
}

func (r *memWalletRepo) saveOne(w *models.Wallet) error {
	stored, ok := r.wallets[w.OwnerID]
	if !ok || stored.Version != w.Version {
		return walletRepo.ErrVersionConflict
	}
	w.Version++
	r.wallets[w.OwnerID] = copyWallet(*w)
	return nil
}

// --- catalog, routing, quoting, notification fakes ---

type stubCatalog struct {
	spaces   map[string]*models.ParkingSpace
	vehicles map[string]*models.Vehicle
}

func (s *stubCatalog) SpaceByID(ctx context.Context, id string) (*models.ParkingSpace, error) {
	sp, ok := s.spaces[id]
	if !ok {
		return nil, errors.New("space not found")
	}
	return sp, nil
}

func (s *stubCatalog) VehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return nil, errors.New("vehicle not found")
	}
	return v, nil
}

type stubRouter struct {
	estimate *eta.RouteEstimate
	err      error
}

func (s *stubRouter) Estimate(ctx context.Context, origin, dest models.GeoPoint) (*eta.RouteEstimate, error) {
	return s.estimate, s.err
}

// stubQuotes returns fixed numbers so money assertions stay readable.
type stubQuotes struct {
	quote    models.Quote
	overtime models.OvertimeCharge
	err      error
}

func (s *stubQuotes) QuoteBooking(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	q := s.quote
	return &q, nil
}

func (s *stubQuotes) OvertimeFor(ctx context.Context, spaceID string, minutes int) (models.OvertimeCharge, error) {
	if minutes <= 0 {
		return models.OvertimeCharge{}, nil
	}
	c := s.overtime
	c.Minutes = minutes
	return c, nil
}

// flakyLedger fails the first failCredits Credit calls, then behaves like the
// real ledger. Used to exercise settlement retries.
type flakyLedger struct {
	wallet.LedgerService
	mu          sync.Mutex
	failCredits int
}

func (l *flakyLedger) Credit(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error) {
	l.mu.Lock()
	fail := l.failCredits > 0
	if fail {
		l.failCredits--
	}
	l.mu.Unlock()
	if fail {
		return "", errors.New("ledger briefly unavailable")
	}
	return l.LedgerService.Credit(ctx, ownerID, amount, bookingID, note)
}

type recordingSink struct {
	mu    sync.Mutex
	kinds []string
}

func (s *recordingSink) Notify(ctx context.Context, recipientID, kind string, payload map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
}

func (s *recordingSink) has(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// --- harness ---

type testEnv struct {
	svc      *DefaultBookingService
	repo     *memBookingRepo
	ledger   *wallet.DefaultLedgerService
	tracker  *geofence.Tracker
	notifier *recordingSink
	catalog  *stubCatalog
	router   *stubRouter
	quotes   *stubQuotes
}

const (
	testDriver   = "driver-1"
	testLandlord = "landlord-1"
	testPlatform = "platform"
	testSpace    = "sp-1"
	testVehicle  = "veh-1"
)

var (
	driverActor   = models.Actor{ID: testDriver, Role: models.RoleDriver}
	landlordActor = models.Actor{ID: testLandlord, Role: models.RoleLandlord}
	adminActor    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	repo := newMemBookingRepo()
	ledger := wallet.NewLedgerService(newMemWalletRepo(), logger)
	tracker := geofence.NewTracker(geofence.NewMemorySessionStore(), config.DefaultBookingConfig(), logger)
	notifier := &recordingSink{}
	catalog := &stubCatalog{
		spaces: map[string]*models.ParkingSpace{
			testSpace: {
				ID:         testSpace,
				LandlordID: testLandlord,
				Name:       "Test Garage",
				Location:   models.GeoPoint{Lat: 0, Lng: 0},
				Slots:      2,
				Active:     true,
			},
		},
		vehicles: map[string]*models.Vehicle{
			testVehicle: {ID: testVehicle, OwnerID: testDriver, Plate: "KAA 001A", Type: "car", Active: true},
		},
	}
	router := &stubRouter{estimate: &eta.RouteEstimate{DurationInTrafficSeconds: 1200}}
	quotes := &stubQuotes{
		quote: models.Quote{
			BaseAmount:       60,
			ServiceFee:       6.8,
			Total:            66.8,
			LandlordEarnings: 54,
			PlatformEarnings: 12.8,
			BaseRate:         20,
			Model:            models.PricingModelStandard,
			Confidence:       100,
		},
		overtime: models.OvertimeCharge{BilledHours: 1, Amount: 17, LandlordShare: 14.45, PlatformShare: 2.55},
	}

	svc := NewBookingService(
		repo, ledger, quotes, tracker,
		catalog, catalog, router, notifier,
		config.DefaultBookingConfig(), testPlatform, logger,
	)
	return &testEnv{
		svc: svc, repo: repo, ledger: ledger, tracker: tracker,
		notifier: notifier, catalog: catalog, router: router, quotes: quotes,
	}
}
