// Package sandbox is an in-memory implementation of the backend the client
// talks to: the single authoritative owner of request and trip state. It
// exists so the client can be developed and tested end to end, and doubles
// as the reference for the lifecycle rules the real backend enforces.
package sandbox

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/mototaxi/internal/config"
	"github.com/example/mototaxi/internal/geo"
	"github.com/example/mototaxi/internal/models"
)

var (
	errNotFound   = errors.New("not found")
	errForbidden  = errors.New("not allowed")
	errBadRequest = errors.New("bad request")
)

type account struct {
	models.User
	passwordHash []byte
}

// Core holds all authoritative state and enforces every lifecycle rule:
// monotonic trip progression, the cancelled escape, request expiry, and
// per-role permissions. Handlers stay thin.
type Core struct {
	cfg    config.SandboxConfig
	logger *slog.Logger

	journal  Journal
	drivers  geo.Index
	requests geo.Index
	producer *LocationProducer // optional
	payments *PaymentClient    // optional
	hub      *Hub

	mu           sync.RWMutex
	accounts     map[string]*account // by username
	accountsByID map[string]*account
	reqs         map[string]*models.Request
	reqTrip      map[string]string // request id -> trip id
	trips        map[string]*models.Trip
	holds        map[string]string // trip id -> payment intent id
	motos        map[string][]models.Moto
	ratings      []models.Rating
	availability map[string]models.Availability
	revoked      map[string]struct{}
	version      int64
}

func NewCore(cfg config.SandboxConfig, logger *slog.Logger, journal Journal, drivers, requests geo.Index) *Core {
	if journal == nil {
		journal = NopJournal{}
	}
	return &Core{
		cfg:          cfg,
		logger:       logger,
		journal:      journal,
		drivers:      drivers,
		requests:     requests,
		hub:          NewHub(),
		accounts:     make(map[string]*account),
		accountsByID: make(map[string]*account),
		reqs:         make(map[string]*models.Request),
		reqTrip:      make(map[string]string),
		trips:        make(map[string]*models.Trip),
		holds:        make(map[string]string),
		motos:        make(map[string][]models.Moto),
		availability: make(map[string]models.Availability),
		revoked:      make(map[string]struct{}),
	}
}

func (c *Core) SetLocationProducer(p *LocationProducer) { c.producer = p }
func (c *Core) SetPayments(p *PaymentClient)            { c.payments = p }

// nextVersion stamps every externally visible mutation; snapshots carry it
// so clients can discard out-of-order poll results.
func (c *Core) nextVersion() int64 {
	c.version++
	return c.version
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// --- accounts ---

func (c *Core) Register(username, password, firstName, lastName, phone string, isDriver bool) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.accounts[username]; exists {
		return models.User{}, errBadRequest
	}
	acc := &account{
		User: models.User{
			ID:        newID(),
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
			Phone:     phone,
			IsDriver:  isDriver,
		},
		passwordHash: hash,
	}
	c.accounts[username] = acc
	c.accountsByID[acc.ID] = acc
	return acc.User, nil
}

func (c *Core) Authenticate(username, password string) (models.User, error) {
	c.mu.RLock()
	acc, ok := c.accounts[username]
	c.mu.RUnlock()
	if !ok {
		return models.User{}, errForbidden
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return models.User{}, errForbidden
	}
	return acc.User, nil
}

func (c *Core) Revoke(token string) {
	c.mu.Lock()
	c.revoked[token] = struct{}{}
	c.mu.Unlock()
}

// --- requests ---

func (c *Core) CreateRequest(passengerID string, origin, destination models.Place, price float64, method models.PaymentMethod, expiresAt time.Time) (models.Request, error) {
	if price < 0.01 {
		return models.Request{}, errBadRequest
	}
	now := time.Now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(c.cfg.RequestTTL)
	}
	req := &models.Request{
		ID:            newID(),
		PassengerID:   passengerID,
		Origin:        origin,
		Destination:   destination,
		OfferedPrice:  price,
		PaymentMethod: method,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
		Status:        models.RequestPending,
	}
	c.mu.Lock()
	c.reqs[req.ID] = req
	c.nextVersion()
	c.mu.Unlock()

	c.requests.Upsert(geo.Point{ID: req.ID, Loc: origin.Coord})
	if err := c.journal.SaveRequest(*req); err != nil {
		c.logger.Error("journal save request", "request_id", req.ID, "error", err)
	}
	return *req, nil
}

// RequestSnapshot builds the poll answer for the waiting screen. Expiry is
// applied lazily here as well as by the sweep, so a poll between sweeps
// still sees the truth.
func (c *Core) RequestSnapshot(requestID string) (models.RequestSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.reqs[requestID]
	if !ok {
		return models.RequestSnapshot{}, errNotFound
	}
	if req.Status == models.RequestPending && time.Now().After(req.ExpiresAt) {
		req.Status = models.RequestExpired
		c.nextVersion()
		c.requests.Remove(req.ID)
	}
	snap := models.RequestSnapshot{
		RequestID: req.ID,
		Status:    req.Status,
		Version:   c.version,
	}
	if req.Status == models.RequestAccepted {
		tripID := c.reqTrip[req.ID]
		snap.TripID = tripID
		if t, ok := c.trips[tripID]; ok && t.Driver != nil {
			snap.Driver = t.Driver
			snap.ETAMinutes = c.etaMinutesLocked(t)
		}
	}
	return snap, nil
}

func (c *Core) CancelRequest(requestID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.reqs[requestID]
	if !ok {
		return errNotFound
	}
	if req.PassengerID != userID {
		return errForbidden
	}
	if req.Status != models.RequestPending {
		return errBadRequest
	}
	req.Status = models.RequestCancelled
	c.nextVersion()
	c.requests.Remove(req.ID)
	if err := c.journal.UpdateRequest(*req); err != nil {
		c.logger.Error("journal update request", "request_id", req.ID, "error", err)
	}
	return nil
}

func (c *Core) AvailableRequests(at models.Coord, radiusKm float64) []models.Request {
	pts := c.requests.Near(at, radiusKm, 50)
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	out := make([]models.Request, 0, len(pts))
	for _, p := range pts {
		req, ok := c.reqs[p.ID]
		if !ok || req.Status != models.RequestPending || now.After(req.ExpiresAt) {
			continue
		}
		out = append(out, *req)
	}
	return out
}

// AcceptRequest claims a pending request for a driver and creates the
// linked trip. The request map is the arbiter: a second driver accepting
// the same request gets a rejection, not a second trip.
func (c *Core) AcceptRequest(requestID, driverID, motoID string) (models.Trip, error) {
	c.mu.Lock()
	req, ok := c.reqs[requestID]
	if !ok {
		c.mu.Unlock()
		return models.Trip{}, errNotFound
	}
	if req.Status != models.RequestPending || time.Now().After(req.ExpiresAt) {
		c.mu.Unlock()
		return models.Trip{}, errBadRequest
	}
	drv, ok := c.accountsByID[driverID]
	if !ok || !drv.IsDriver {
		c.mu.Unlock()
		return models.Trip{}, errForbidden
	}

	req.Status = models.RequestAccepted
	passenger := c.accountsByID[req.PassengerID]
	trip := &models.Trip{
		ID:            newID(),
		RequestID:     req.ID,
		Origin:        req.Origin,
		Destination:   req.Destination,
		Driver:        c.driverSummaryLocked(drv, motoID),
		AgreedPrice:   req.OfferedPrice,
		PaymentMethod: req.PaymentMethod,
		Status:        models.TripAccepted,
		CreatedAt:     time.Now(),
	}
	if passenger != nil {
		u := passenger.User
		trip.Passenger = &u
	}
	trip.Version = c.nextVersion()
	c.trips[trip.ID] = trip
	c.reqTrip[req.ID] = trip.ID
	tripCopy := *trip
	reqCopy := *req
	c.mu.Unlock()

	c.requests.Remove(req.ID)
	if err := c.journal.UpdateRequest(reqCopy); err != nil {
		c.logger.Error("journal update request", "request_id", req.ID, "error", err)
	}
	if err := c.journal.SaveTrip(tripCopy); err != nil {
		c.logger.Error("journal save trip", "trip_id", trip.ID, "error", err)
	}
	if c.payments != nil && tripCopy.PaymentMethod == models.PayCard {
		if holdID, err := c.payments.Hold(tripCopy.AgreedPrice, tripCopy.Passenger); err != nil {
			c.logger.Warn("payment hold failed, continuing as cash", "trip_id", trip.ID, "error", err)
		} else {
			c.mu.Lock()
			c.holds[trip.ID] = holdID
			c.mu.Unlock()
		}
	}
	c.hub.Broadcast(tripCopy)
	return tripCopy, nil
}

// --- trips ---

func (c *Core) Trip(tripID string) (models.Trip, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trips[tripID]
	if !ok {
		return models.Trip{}, errNotFound
	}
	out := *t
	if out.Driver != nil {
		if av, ok := c.availability[out.Driver.ID]; ok {
			loc := av.Loc
			out.DriverLoc = &loc
		}
	}
	return out, nil
}

func (c *Core) TripsByUser(userID string) []models.Trip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Trip
	for _, t := range c.trips {
		if (t.Passenger != nil && t.Passenger.ID == userID) || (t.Driver != nil && t.Driver.ID == userID) {
			out = append(out, *t)
		}
	}
	return out
}

// Transition is the single arbiter for trip status changes. Duplicate or
// out-of-order commands are rejected here, which is what makes the
// client's fire-and-poll approach safe.
func (c *Core) Transition(tripID, actorID string, target models.TripStatus, finalPrice *float64) error {
	c.mu.Lock()
	t, ok := c.trips[tripID]
	if !ok {
		c.mu.Unlock()
		return errNotFound
	}
	isDriver := t.Driver != nil && t.Driver.ID == actorID
	isPassenger := t.Passenger != nil && t.Passenger.ID == actorID
	if !isDriver && !isPassenger {
		c.mu.Unlock()
		return errForbidden
	}
	// Forward steps are driver-only; cancel is open to both parties.
	if target != models.TripCancelled && !isDriver {
		c.mu.Unlock()
		return errForbidden
	}
	if !t.Status.CanAdvanceTo(target) {
		c.mu.Unlock()
		return errBadRequest
	}
	t.Status = target
	if target == models.TripCompleted {
		price := t.AgreedPrice
		if finalPrice != nil && *finalPrice > 0 {
			price = *finalPrice
		}
		t.FinalPrice = &price
	}
	t.Version = c.nextVersion()
	holdID := c.holds[tripID]
	tripCopy := *t
	c.mu.Unlock()

	if err := c.journal.UpdateTrip(tripCopy); err != nil {
		c.logger.Error("journal update trip", "trip_id", tripID, "error", err)
	}
	c.settlePayment(tripCopy, holdID)
	c.hub.Broadcast(tripCopy)
	c.logger.Info("trip transitioned", "trip_id", tripID, "status", target)
	return nil
}

func (c *Core) settlePayment(t models.Trip, holdID string) {
	if c.payments == nil || holdID == "" {
		return
	}
	var err error
	switch t.Status {
	case models.TripCompleted:
		err = c.payments.Capture(holdID)
	case models.TripCancelled:
		err = c.payments.Release(holdID)
	default:
		return
	}
	if err != nil {
		c.logger.Error("payment settlement failed", "trip_id", t.ID, "status", t.Status, "error", err)
	}
}

// --- drivers ---

func (c *Core) UpdateDriverLocation(driverID string, at models.Coord) {
	c.mu.Lock()
	av := c.availability[driverID]
	av.Loc = at
	av.Updated = time.Now()
	if av.State == "" {
		av.State = models.DriverUnavailable
	}
	c.availability[driverID] = av
	state := av.State
	c.mu.Unlock()

	if state == models.DriverAvailable {
		c.drivers.Upsert(geo.Point{ID: driverID, Loc: at})
	}
	if c.producer != nil {
		if err := c.producer.Publish(driverID, at); err != nil {
			c.logger.Warn("publish driver location", "driver_id", driverID, "error", err)
		}
	}
}

func (c *Core) SetAvailability(driverID string, state models.AvailabilityState) error {
	if state != models.DriverAvailable && state != models.DriverUnavailable {
		return errBadRequest
	}
	c.mu.Lock()
	av := c.availability[driverID]
	av.State = state
	av.Updated = time.Now()
	c.availability[driverID] = av
	loc := av.Loc
	c.mu.Unlock()

	if state == models.DriverAvailable {
		c.drivers.Upsert(geo.Point{ID: driverID, Loc: loc})
	} else {
		c.drivers.Remove(driverID)
	}
	return nil
}

func (c *Core) AvailableDrivers(at models.Coord, radiusKm float64) []models.DriverSummary {
	pts := c.drivers.Near(at, radiusKm, 50)
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.DriverSummary, 0, len(pts))
	for _, p := range pts {
		acc, ok := c.accountsByID[p.ID]
		if !ok {
			continue
		}
		if s := c.driverSummaryLocked(acc, ""); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (c *Core) driverSummaryLocked(acc *account, motoID string) *models.DriverSummary {
	s := &models.DriverSummary{
		ID:     acc.ID,
		Name:   displayName(acc.User),
		Rating: c.averageRatingLocked(acc.ID),
		Phone:  acc.Phone,
	}
	for _, m := range c.motos[acc.ID] {
		if motoID == "" || m.ID == motoID {
			s.Plate = m.Plate
			break
		}
	}
	return s
}

func displayName(u models.User) string {
	if u.FirstName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

// --- motos ---

func (c *Core) RegisterMoto(driverID string, m models.Moto) (models.Moto, error) {
	if m.Plate == "" {
		return models.Moto{}, errBadRequest
	}
	m.ID = newID()
	c.mu.Lock()
	c.motos[driverID] = append(c.motos[driverID], m)
	c.mu.Unlock()
	return m, nil
}

func (c *Core) MotosByDriver(driverID string) []models.Moto {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Moto(nil), c.motos[driverID]...)
}

// --- ratings ---

func (c *Core) RateTrip(raterID, tripID, ratedID string, score int, comment string) (models.Rating, error) {
	if score < 1 || score > 5 {
		return models.Rating{}, errBadRequest
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trips[tripID]
	if !ok {
		return models.Rating{}, errNotFound
	}
	if t.Status != models.TripCompleted {
		return models.Rating{}, errBadRequest
	}
	r := models.Rating{
		ID:        newID(),
		TripID:    tripID,
		RaterID:   raterID,
		RatedID:   ratedID,
		Score:     score,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	c.ratings = append(c.ratings, r)
	return r, nil
}

func (c *Core) RatingsBy(userID string) []models.Rating {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Rating
	for _, r := range c.ratings {
		if r.RaterID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (c *Core) RatingsFor(userID string) []models.Rating {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Rating
	for _, r := range c.ratings {
		if r.RatedID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (c *Core) averageRatingLocked(userID string) float64 {
	sum, n := 0, 0
	for _, r := range c.ratings {
		if r.RatedID == userID {
			sum += r.Score
			n++
		}
	}
	if n == 0 {
		return 5.0
	}
	return float64(sum) / float64(n)
}

// --- expiry sweep ---

// RunExpirySweep marks overdue pending requests expired until stop closes.
func (c *Core) RunExpirySweep(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.sweepExpired(time.Now())
		}
	}
}

func (c *Core) sweepExpired(now time.Time) {
	c.mu.Lock()
	var expired []string
	for id, req := range c.reqs {
		if req.Status == models.RequestPending && now.After(req.ExpiresAt) {
			req.Status = models.RequestExpired
			c.nextVersion()
			expired = append(expired, id)
		}
	}
	c.mu.Unlock()
	for _, id := range expired {
		c.requests.Remove(id)
		c.logger.Info("request expired", "request_id", id)
	}
}

// etaMinutesLocked estimates driver arrival from the last known driver
// position, straight-line at the configured speed.
func (c *Core) etaMinutesLocked(t *models.Trip) int {
	if t.Driver == nil {
		return 0
	}
	av, ok := c.availability[t.Driver.ID]
	if !ok {
		return 0
	}
	meters := geo.Haversine(av.Loc.Lat, av.Loc.Lng, t.Origin.Coord.Lat, t.Origin.Coord.Lng)
	minutes := meters / 1000 / c.cfg.DefaultSpeedKmh * 60
	if minutes < 1 {
		return 1
	}
	return int(minutes + 0.5)
}
