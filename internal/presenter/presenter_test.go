package presenter

import (
	"context"
	"sync"

	"github.com/example/mototaxi/internal/models"
)

// Shared hand-rolled fakes for the view-side contracts.

type fakeNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (f *fakeNotifier) Info(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, msg)
}

func (f *fakeNotifier) Error(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, msg)
}

type fakeConfirmer struct {
	answer bool
	calls  int
}

func (f *fakeConfirmer) Confirm(title, message string) bool {
	f.calls++
	return f.answer
}

type fakeNav struct {
	trips []string
	homes int
}

func (f *fakeNav) ToTrip(tripID string) { f.trips = append(f.trips, tripID) }
func (f *fakeNav) ToHome()              { f.homes++ }

type fakeRequestCommands struct {
	cancelErr error
	cancelled []string
}

func (f *fakeRequestCommands) CancelRequest(_ context.Context, requestID string) error {
	f.cancelled = append(f.cancelled, requestID)
	return f.cancelErr
}

type fakeTripCommands struct {
	err   error
	calls []string
}

func (f *fakeTripCommands) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeTripCommands) TripEnRoute(context.Context, string) error { return f.record("en_route") }
func (f *fakeTripCommands) TripArrived(context.Context, string) error { return f.record("arrived") }
func (f *fakeTripCommands) TripStart(context.Context, string) error   { return f.record("start") }
func (f *fakeTripCommands) TripCancel(context.Context, string) error  { return f.record("cancel") }

func (f *fakeTripCommands) TripComplete(_ context.Context, _ string, finalPrice *float64) error {
	name := "complete"
	if finalPrice != nil {
		name = "complete_with_price"
	}
	return f.record(name)
}

func tripAt(status models.TripStatus, version int64) models.Trip {
	return models.Trip{ID: "trip-1", Status: status, Version: version}
}
