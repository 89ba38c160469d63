package sandbox

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/mototaxi/internal/geo"
	"github.com/example/mototaxi/internal/models"
)

// Server exposes the Core over the same REST contract the production
// backend implements, envelope and all.
type Server struct {
	core   *Core
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(core *Core, logger *slog.Logger) *Server {
	s := &Server{core: core, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("/auth/sign-in", s.handleSignIn).Methods("POST")
	s.mux.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	s.mux.HandleFunc("/auth/sign-out", s.requireAuth(s.handleSignOut)).Methods("POST")

	s.mux.HandleFunc("/transport/requests", s.requireAuth(s.handleCreateRequest)).Methods("POST")
	s.mux.HandleFunc("/transport/requests/available", s.requireAuth(s.handleAvailableRequests)).Methods("GET")
	s.mux.HandleFunc("/transport/requests/{id}/status", s.requireAuth(s.handleRequestStatus)).Methods("GET")
	s.mux.HandleFunc("/transport/requests/{id}/cancel", s.requireAuth(s.handleCancelRequest)).Methods("POST")
	s.mux.HandleFunc("/transport/requests/{id}/accept", s.requireAuth(s.handleAcceptRequest)).Methods("POST")

	s.mux.HandleFunc("/transport/trips/mine", s.requireAuth(s.handleMyTrips)).Methods("GET")
	s.mux.HandleFunc("/transport/trips/{id}", s.requireAuth(s.handleTripDetail)).Methods("GET")
	for _, t := range []struct {
		suffix string
		target models.TripStatus
	}{
		{"en_route", models.TripEnRoute},
		{"arrived", models.TripArrived},
		{"start", models.TripOngoing},
		{"complete", models.TripCompleted},
		{"cancel", models.TripCancelled},
	} {
		target := t.target
		s.mux.HandleFunc("/transport/trips/{id}/"+t.suffix, s.requireAuth(s.handleTransition(target))).Methods("POST")
	}

	s.mux.HandleFunc("/transport/drivers/location", s.requireAuth(s.handleDriverLocation)).Methods("POST")
	s.mux.HandleFunc("/transport/drivers/availability", s.requireAuth(s.handleAvailability)).Methods("POST")
	s.mux.HandleFunc("/transport/drivers/available", s.requireAuth(s.handleAvailableDrivers)).Methods("GET")

	s.mux.HandleFunc("/transport/motos", s.requireAuth(s.handleRegisterMoto)).Methods("POST")
	s.mux.HandleFunc("/transport/motos/mine", s.requireAuth(s.handleMyMotos)).Methods("GET")

	s.mux.HandleFunc("/transport/ratings", s.requireAuth(s.handleRateTrip)).Methods("POST")
	s.mux.HandleFunc("/transport/ratings/mine", s.requireAuth(s.handleMyRatings)).Methods("GET")
	s.mux.HandleFunc("/transport/ratings/received", s.requireAuth(s.handleReceivedRatings)).Methods("GET")

	s.mux.HandleFunc("/geo/autocomplete", s.requireAuth(s.handleAutocomplete)).Methods("GET")
	s.mux.HandleFunc("/geo/geocode", s.requireAuth(s.handleGeocode)).Methods("GET")
	s.mux.HandleFunc("/geo/reverse", s.requireAuth(s.handleReverse)).Methods("GET")
	s.mux.HandleFunc("/geo/route", s.requireAuth(s.handleRoute)).Methods("GET")

	s.mux.HandleFunc("/ws/trips/{id}", s.handleTripStream)

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

// --- auth ---

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, errBadRequest, "invalid body")
		return
	}
	user, err := s.core.Authenticate(body.Username, body.Password)
	if err != nil {
		writeErr(w, errBadRequest, "invalid username or password")
		return
	}
	access, refresh, err := s.core.issueTokens(user.ID, user.Username, user.IsDriver)
	if err != nil {
		writeErr(w, err, "could not issue tokens")
		return
	}
	writeData(w, map[string]any{"access": access, "refresh": refresh, "user": user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Phone     string `json:"phone"`
		IsDriver  bool   `json:"is_driver"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, errBadRequest, "invalid body")
		return
	}
	if body.Username == "" || body.Password == "" {
		writeErr(w, errBadRequest, "username and password required")
		return
	}
	user, err := s.core.Register(body.Username, body.Password, body.FirstName, body.LastName, body.Phone, body.IsDriver)
	if err != nil {
		writeErr(w, err, "username already taken")
		return
	}
	writeData(w, user)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.core.Revoke(bearerToken(r))
	writeData(w, nil)
}

// --- requests ---

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	var body struct {
		Origin        models.Place         `json:"origin"`
		Destination   models.Place         `json:"destination"`
		OfferedPrice  float64              `json:"offered_price"`
		PaymentMethod models.PaymentMethod `json:"payment_method"`
		ExpiresAt     time.Time            `json:"expires_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, errBadRequest, "invalid body")
		return
	}
	req, err := s.core.CreateRequest(cl.Subject, body.Origin, body.Destination, body.OfferedPrice, body.PaymentMethod, body.ExpiresAt)
	if err != nil {
		writeErr(w, err, "could not create request")
		return
	}
	writeData(w, req)
}

func (s *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.core.RequestSnapshot(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err, "request not found")
		return
	}
	writeData(w, snap)
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	if err := s.core.CancelRequest(mux.Vars(r)["id"], cl.Subject); err != nil {
		writeErr(w, err, "request cannot be cancelled")
		return
	}
	writeData(w, nil)
}

func (s *Server) handleAvailableRequests(w http.ResponseWriter, r *http.Request) {
	at, radius, err := coordRadiusParams(r)
	if err != nil {
		writeErr(w, errBadRequest, err.Error())
		return
	}
	reqs := s.core.AvailableRequests(at, radius)
	writeData(w, map[string]any{"requests": reqs})
}

func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	var body struct {
		MotoID string `json:"moto_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	trip, err := s.core.AcceptRequest(mux.Vars(r)["id"], cl.Subject, body.MotoID)
	if err != nil {
		writeErr(w, err, "request not found or already taken")
		return
	}
	writeData(w, map[string]any{"trip_id": trip.ID})
}

// --- trips ---

func (s *Server) handleTripDetail(w http.ResponseWriter, r *http.Request) {
	trip, err := s.core.Trip(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err, "trip not found")
		return
	}
	writeData(w, trip)
}

func (s *Server) handleMyTrips(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	writeData(w, map[string]any{"trips": s.core.TripsByUser(cl.Subject)})
}

func (s *Server) handleTransition(target models.TripStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cl := claimsFromContext(r.Context())
		var body struct {
			FinalPrice *float64 `json:"final_price"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		err := s.core.Transition(mux.Vars(r)["id"], cl.Subject, target, body.FinalPrice)
		if err != nil {
			writeErr(w, err, fmt.Sprintf("trip cannot move to %s", target))
			return
		}
		writeData(w, nil)
	}
}

// --- drivers ---

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	if !cl.IsDriver {
		writeErr(w, errForbidden, "driver account required")
		return
	}
	var at models.Coord
	if err := json.NewDecoder(r.Body).Decode(&at); err != nil {
		writeErr(w, errBadRequest, "invalid body")
		return
	}
	s.core.UpdateDriverLocation(cl.Subject, at)
	writeData(w, nil)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	if !cl.IsDriver {
		writeErr(w, errForbidden, "driver account required")
		return
	}
	var body struct {
		State models.AvailabilityState `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, errBadRequest, "invalid body")
		return
	}
	if err := s.core.SetAvailability(cl.Subject, body.State); err != nil {
		writeErr(w, err, "unknown availability state")
		return
	}
	writeData(w, nil)
}

func (s *Server) handleAvailableDrivers(w http.ResponseWriter, r *http.Request) {
	at, radius, err := coordRadiusParams(r)
	if err != nil {
		writeErr(w, errBadRequest, err.Error())
		return
	}
	writeData(w, map[string]any{"drivers": s.core.AvailableDrivers(at, radius)})
}

// --- motos ---

func (s *Server) handleRegisterMoto(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	var m models.Moto
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeErr(w, errBadRequest, "invalid body")
		return
	}
	moto, err := s.core.RegisterMoto(cl.Subject, m)
	if err != nil {
		writeErr(w, err, "plate required")
		return
	}
	writeData(w, moto)
}

func (s *Server) handleMyMotos(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	writeData(w, map[string]any{"motos": s.core.MotosByDriver(cl.Subject)})
}

// --- ratings ---

func (s *Server) handleRateTrip(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	var body struct {
		TripID  string `json:"trip_id"`
		RatedID string `json:"rated_id"`
		Score   int    `json:"score"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, errBadRequest, "invalid body")
		return
	}
	rating, err := s.core.RateTrip(cl.Subject, body.TripID, body.RatedID, body.Score, body.Comment)
	if err != nil {
		writeErr(w, err, "trip cannot be rated")
		return
	}
	writeData(w, rating)
}

func (s *Server) handleMyRatings(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	writeData(w, map[string]any{"ratings": s.core.RatingsBy(cl.Subject)})
}

func (s *Server) handleReceivedRatings(w http.ResponseWriter, r *http.Request) {
	cl := claimsFromContext(r.Context())
	writeData(w, map[string]any{"ratings": s.core.RatingsFor(cl.Subject)})
}

// --- geo ---
// The sandbox has no geocoding provider behind it; it answers with
// deterministic synthetic places so client flows can run offline.

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 10 {
		limit = 5
	}
	preds := make([]models.Suggestion, 0, limit)
	for i := 0; i < limit; i++ {
		p := syntheticPlace(fmt.Sprintf("%s-%d", q, i))
		preds = append(preds, models.Suggestion{
			ID:          fmt.Sprintf("sandbox-%d", i),
			Description: fmt.Sprintf("%s (option %d)", q, i+1),
			Coord:       p.Coord,
		})
	}
	writeData(w, map[string]any{"predictions": preds})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeErr(w, errBadRequest, "q required")
		return
	}
	writeData(w, syntheticPlace(q))
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil {
		writeErr(w, errBadRequest, "lat and lng required")
		return
	}
	writeData(w, models.Place{
		Coord:   models.Coord{Lat: lat, Lng: lng},
		Address: fmt.Sprintf("Near %.4f, %.4f", lat, lng),
	})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	origin, err := parseCoordPair(r.URL.Query().Get("origin"))
	if err != nil {
		writeErr(w, errBadRequest, "origin must be lat,lng")
		return
	}
	dest, err := parseCoordPair(r.URL.Query().Get("destination"))
	if err != nil {
		writeErr(w, errBadRequest, "destination must be lat,lng")
		return
	}
	meters := geo.Haversine(origin.Lat, origin.Lng, dest.Lat, dest.Lng)
	km := meters / 1000
	writeData(w, models.Route{
		DistanceKm:      km,
		DurationMinutes: km / s.core.cfg.DefaultSpeedKmh * 60,
	})
}

// --- trip stream ---

var upgrader = websocket.Upgrader{}

func (s *Server) handleTripStream(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if _, err := s.core.verifyToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	tripID := mux.Vars(r)["id"]
	trip, err := s.core.Trip(tripID)
	if err != nil {
		http.Error(w, "trip not found", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.core.hub.Add(tripID, conn)
	// Prime the subscriber with the current state so it never waits for
	// the next change.
	s.core.hub.Broadcast(trip)
}

// --- helpers ---

func coordRadiusParams(r *http.Request) (models.Coord, float64, error) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil {
		return models.Coord{}, 0, fmt.Errorf("lat and lng required")
	}
	radius, err := strconv.ParseFloat(r.URL.Query().Get("radius_km"), 64)
	if err != nil || radius <= 0 {
		radius = 5
	}
	return models.Coord{Lat: lat, Lng: lng}, radius, nil
}

func parseCoordPair(v string) (models.Coord, error) {
	var c models.Coord
	if _, err := fmt.Sscanf(v, "%f,%f", &c.Lat, &c.Lng); err != nil {
		return models.Coord{}, err
	}
	return c, nil
}

// syntheticPlace derives a stable coordinate near the sandbox's home city
// from the query text so repeated lookups agree with each other.
func syntheticPlace(q string) models.Place {
	h := fnv.New32a()
	_, _ = h.Write([]byte(q))
	v := h.Sum32()
	lat := -2.17 + float64(v%1000)/10000.0
	lng := -79.92 + float64((v/1000)%1000)/10000.0
	return models.Place{
		Coord:   models.Coord{Lat: lat, Lng: lng},
		Address: q,
	}
}
