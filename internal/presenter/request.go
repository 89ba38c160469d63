package presenter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/mototaxi/internal/models"
)

// RequestCommands is the slice of the API client the waiting view needs.
type RequestCommands interface {
	CancelRequest(ctx context.Context, requestID string) error
}

// RequestMode is what the waiting view renders.
type RequestMode string

const (
	ModeSearching      RequestMode = "searching"
	ModeDriverAssigned RequestMode = "driver_assigned"
	ModeGone           RequestMode = "gone" // navigated away, view is dead
)

// RequestPresenter drives the request-waiting view: feed it poll snapshots
// via Apply and it keeps mode, actions and navigation consistent.
type RequestPresenter struct {
	RequestID string
	// Deadline is the request's expiry instant; when it passes client-side
	// the view gives up without waiting for the backend to notice.
	Deadline time.Time

	Commands  RequestCommands
	Notifier  Notifier
	Confirmer Confirmer
	Navigator Navigator
	Logger    *slog.Logger

	mu        sync.Mutex
	mode      RequestMode
	snap      models.RequestSnapshot
	announced bool // "trip being set up" notice shown once per wait
	gone      bool
}

func (p *RequestPresenter) Mode() RequestMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == "" {
		return ModeSearching
	}
	return p.mode
}

// Actions returns the currently enabled actions; empty once the request
// reached a terminal status or the view navigated away.
func (p *RequestPresenter) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gone {
		return nil
	}
	return RequestActionsFor(p.snap.Status)
}

// Snapshot returns the last applied snapshot (driver summary, ETA, trip id).
func (p *RequestPresenter) Snapshot() models.RequestSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Apply consumes one poll result. Returns true when the view is finished
// and the poller should stop.
func (p *RequestPresenter) Apply(snap models.RequestSnapshot) bool {
	p.mu.Lock()
	if p.gone {
		p.mu.Unlock()
		return true
	}
	p.snap = snap

	var nav func()
	switch snap.Status {
	case models.RequestPending:
		p.mode = ModeSearching
	case models.RequestAccepted:
		p.mode = ModeDriverAssigned
		if snap.TripID != "" {
			// Navigate only once the linked trip exists, never on the
			// bare accepted status.
			tripID := snap.TripID
			nav = func() { p.Navigator.ToTrip(tripID) }
			p.markGoneLocked()
		} else if !p.announced {
			p.announced = true
			p.Notifier.Info("Driver assigned. Your trip is being set up...")
		}
	case models.RequestCancelled:
		// May have been us, the driver, or the expiry sweep: silent return.
		nav = p.Navigator.ToHome
		p.markGoneLocked()
	case models.RequestExpired:
		p.Notifier.Info("Your request expired without being accepted")
		nav = p.Navigator.ToHome
		p.markGoneLocked()
	}
	p.mu.Unlock()

	if nav != nil {
		nav()
		return true
	}
	return false
}

// Tick checks the client-side expiry deadline. Returns true when the wait
// is over and the poller should stop.
func (p *RequestPresenter) Tick(now time.Time) bool {
	p.mu.Lock()
	if p.gone {
		p.mu.Unlock()
		return true
	}
	if p.Deadline.IsZero() || now.Before(p.Deadline) || p.snap.Status != models.RequestPending && p.snap.Status != "" {
		p.mu.Unlock()
		return false
	}
	p.Notifier.Info("Your request expired without being accepted")
	p.markGoneLocked()
	p.mu.Unlock()
	p.Navigator.ToHome()
	return true
}

// Cancel sends the cancel-request command after confirmation. The mode
// does not change here; the cancelled status arrives on the next poll.
func (p *RequestPresenter) Cancel(ctx context.Context) {
	if p.Confirmer != nil && !p.Confirmer.Confirm("Cancel request", "Are you sure you want to cancel your request?") {
		return
	}
	if err := p.Commands.CancelRequest(ctx, p.RequestID); err != nil {
		p.logger().Warn("cancel request failed", "request_id", p.RequestID, "error", err)
		p.Notifier.Error(failureText(err, "Could not cancel the request"))
		return
	}
	p.mu.Lock()
	p.markGoneLocked()
	p.mu.Unlock()
	p.Navigator.ToHome()
}

func (p *RequestPresenter) markGoneLocked() {
	p.gone = true
	p.mode = ModeGone
}

func (p *RequestPresenter) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
