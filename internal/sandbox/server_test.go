package sandbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/mototaxi/internal/api"
	"github.com/example/mototaxi/internal/models"
	"github.com/example/mototaxi/internal/stream"
)

type tokenBox struct{ token string }

func (t *tokenBox) AccessToken() string { return t.token }

func startServer(t *testing.T) (*httptest.Server, *Core) {
	t.Helper()
	core := testCore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(core, logger))
	t.Cleanup(srv.Close)
	return srv, core
}

func signIn(t *testing.T, url, username, password string, box *tokenBox) models.User {
	t.Helper()
	c := api.New(url, api.WithTokens(box))
	creds, err := c.Login(context.Background(), username, password)
	if err != nil {
		t.Fatal(err)
	}
	box.token = creds.Access
	return creds.User
}

// TestFullRideOverHTTP drives a complete ride through the REST surface with
// the real client: register, sign in, request, accept, every transition,
// and a rating, all through the canonical envelope.
func TestFullRideOverHTTP(t *testing.T) {
	srv, _ := startServer(t)
	ctx := context.Background()

	anon := api.New(srv.URL)
	if _, err := anon.Register(ctx, api.RegisterParams{Username: "ana", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	if _, err := anon.Register(ctx, api.RegisterParams{Username: "luis", Password: "pw", IsDriver: true}); err != nil {
		t.Fatal(err)
	}

	passengerTok := &tokenBox{}
	driverTok := &tokenBox{}
	signIn(t, srv.URL, "ana", "pw", passengerTok)
	driver := signIn(t, srv.URL, "luis", "pw", driverTok)

	passenger := api.New(srv.URL, api.WithTokens(passengerTok))
	driverCli := api.New(srv.URL, api.WithTokens(driverTok))

	if err := driverCli.SetAvailability(ctx, models.DriverAvailable); err != nil {
		t.Fatal(err)
	}
	if err := driverCli.UpdateLocation(ctx, origin.Coord); err != nil {
		t.Fatal(err)
	}

	req, err := passenger.CreateRequest(ctx, api.CreateRequestParams{
		Origin:        origin,
		Destination:   destination,
		OfferedPrice:  2.5,
		PaymentMethod: models.PayCash,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The created request echoes exactly what the passenger submitted.
	if req.Origin != origin || req.Destination != destination {
		t.Fatalf("request places = %+v / %+v, want submitted places", req.Origin, req.Destination)
	}
	if req.OfferedPrice != 2.5 || req.PaymentMethod != models.PayCash {
		t.Fatalf("request terms = %v %s, want 2.5 cash", req.OfferedPrice, req.PaymentMethod)
	}

	snap, err := passenger.RequestStatus(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != models.RequestPending {
		t.Fatalf("status = %s, want pending", snap.Status)
	}

	nearby, err := driverCli.AvailableRequests(ctx, origin.Coord, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(nearby) != 1 || nearby[0].ID != req.ID {
		t.Fatalf("nearby = %v", nearby)
	}

	tripID, err := driverCli.AcceptRequest(ctx, req.ID, "")
	if err != nil {
		t.Fatal(err)
	}

	snap, err = passenger.RequestStatus(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != models.RequestAccepted || snap.TripID != tripID || snap.Driver == nil {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Driver.ID != driver.ID {
		t.Fatalf("driver = %+v", snap.Driver)
	}

	// Passenger cannot drive the trip forward through the API either.
	if err := passenger.TripEnRoute(ctx, tripID); !api.IsRejection(err) {
		t.Fatalf("forward by passenger = %v, want rejection", err)
	}

	if err := driverCli.TripEnRoute(ctx, tripID); err != nil {
		t.Fatal(err)
	}
	if err := driverCli.TripArrived(ctx, tripID); err != nil {
		t.Fatal(err)
	}
	if err := driverCli.TripStart(ctx, tripID); err != nil {
		t.Fatal(err)
	}
	price := 3.0
	if err := driverCli.TripComplete(ctx, tripID, &price); err != nil {
		t.Fatal(err)
	}

	trip, err := passenger.Trip(ctx, tripID)
	if err != nil {
		t.Fatal(err)
	}
	if trip.Status != models.TripCompleted || trip.FinalPrice == nil || *trip.FinalPrice != price {
		t.Fatalf("trip = %+v", trip)
	}
	// The trip still carries the terms of the originating request.
	if trip.Origin != origin || trip.Destination != destination {
		t.Fatalf("trip places = %+v / %+v, want the request's places", trip.Origin, trip.Destination)
	}
	if trip.AgreedPrice != 2.5 || trip.PaymentMethod != models.PayCash {
		t.Fatalf("trip terms = %v %s, want 2.5 cash", trip.AgreedPrice, trip.PaymentMethod)
	}

	if _, err := passenger.RateTrip(ctx, api.RateTripParams{
		TripID:  tripID,
		RatedID: driver.ID,
		Score:   5,
		Comment: "smooth",
	}); err != nil {
		t.Fatal(err)
	}

	mine, err := passenger.MyTrips(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].ID != tripID {
		t.Fatalf("my trips = %v", mine)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	srv, _ := startServer(t)
	var fired int
	c := api.New(srv.URL, api.WithUnauthorizedHook(func() { fired++ }))
	_, err := c.MyTrips(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if fired != 1 {
		t.Fatalf("hook fired %d times, want 1", fired)
	}
}

func TestRevokedTokenIsUnauthorized(t *testing.T) {
	srv, _ := startServer(t)
	ctx := context.Background()

	anon := api.New(srv.URL)
	if _, err := anon.Register(ctx, api.RegisterParams{Username: "ana", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	box := &tokenBox{}
	signIn(t, srv.URL, "ana", "pw", box)
	c := api.New(srv.URL, api.WithTokens(box))

	if err := c.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.MyTrips(ctx); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("err after sign-out = %v, want ErrUnauthorized", err)
	}
}

func TestGeoEndpoints(t *testing.T) {
	srv, _ := startServer(t)
	ctx := context.Background()
	anon := api.New(srv.URL)
	if _, err := anon.Register(ctx, api.RegisterParams{Username: "ana", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	box := &tokenBox{}
	signIn(t, srv.URL, "ana", "pw", box)
	c := api.New(srv.URL, api.WithTokens(box))

	preds, err := c.Autocomplete(ctx, "parque", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 3 {
		t.Fatalf("predictions = %v, want 3", preds)
	}

	place, err := c.Geocode(ctx, "parque centenario")
	if err != nil {
		t.Fatal(err)
	}
	again, err := c.Geocode(ctx, "parque centenario")
	if err != nil {
		t.Fatal(err)
	}
	if place.Coord != again.Coord {
		t.Fatal("geocoding the same text should be deterministic")
	}

	rev, err := c.ReverseGeocode(ctx, place.Coord)
	if err != nil {
		t.Fatal(err)
	}
	if rev.Address == "" {
		t.Fatal("reverse geocode should produce an address")
	}

	route, err := c.RouteBetween(ctx, origin.Coord, destination.Coord)
	if err != nil {
		t.Fatal(err)
	}
	if route.DistanceKm <= 0 || route.DurationMinutes <= 0 {
		t.Fatalf("route = %+v", route)
	}
}

// TestTripStreamPushesTransitions exercises the websocket path end to end:
// the subscriber receives a snapshot per transition without polling.
func TestTripStreamPushesTransitions(t *testing.T) {
	srv, core := startServer(t)
	ctx := context.Background()

	p, _ := core.Register("ana", "pw", "", "", "", false)
	d, _ := core.Register("luis", "pw", "", "", "", true)
	req, _ := core.CreateRequest(p.ID, origin, destination, 2.0, models.PayCash, time.Time{})
	trip, err := core.AcceptRequest(req.ID, d.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	access, _, err := core.issueTokens(p.ID, p.Username, false)
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan models.Trip, 8)
	sub := &stream.TripSubscriber{
		BaseURL: srv.URL,
		TripID:  trip.ID,
		Token:   access,
		Apply:   func(t models.Trip) { got <- t },
		Done:    func(t models.Trip) bool { return t.Status.Terminal() },
	}
	subDone := make(chan error, 1)
	go func() { subDone <- sub.Run(ctx) }()

	// The server primes the stream with the current state.
	select {
	case first := <-got:
		if first.Status != models.TripAccepted {
			t.Fatalf("primed status = %s, want accepted", first.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no primed snapshot")
	}

	if err := core.Transition(trip.ID, d.ID, models.TripEnRoute, nil); err != nil {
		t.Fatal(err)
	}
	select {
	case pushed := <-got:
		if pushed.Status != models.TripEnRoute {
			t.Fatalf("pushed status = %s, want en_route", pushed.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("transition was not pushed")
	}

	if err := core.Transition(trip.ID, d.ID, models.TripCancelled, nil); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-subDone:
		if err != nil {
			t.Fatalf("subscriber ended with %v, want clean stop on terminal", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop on the terminal snapshot")
	}
}
