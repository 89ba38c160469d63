// Package poller implements the fixed-cadence status fetch loop shared by
// the request-waiting and active-trip views: fetch immediately, then on
// every tick, delivering each result whether or not anything changed.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/mototaxi/internal/observability"
)

// Versioned is any snapshot stamped with the backend's monotonic version.
// The poller uses it to discard results that arrive out of order.
type Versioned interface {
	StateVersion() int64
}

// Poller repeatedly fetches one subject's state until the context is
// cancelled or Done reports a terminal snapshot.
type Poller[S Versioned] struct {
	// Subject labels metrics and log lines, e.g. "request" or "trip".
	Subject  string
	Interval time.Duration
	Fetch    func(ctx context.Context) (S, error)
	// Apply receives every non-stale result, including unchanged ones.
	Apply func(S)
	// Done, when non-nil, stops the loop after applying a snapshot for
	// which it returns true. Terminal statuses belong here.
	Done   func(S) bool
	Logger *slog.Logger

	// Wake, when non-nil, triggers an immediate out-of-cadence fetch per
	// received value. The ticker is not reset.
	Wake <-chan struct{}

	// last is the highest version applied so far; mutated only from
	// Run's goroutine.
	last int64
}

// Run blocks until the loop ends. The first fetch happens immediately.
// A failed fetch is logged and skipped; the cadence never changes and
// there is no retry cutoff. Results resolving after cancellation are
// discarded, so no Apply call ever follows ctx.Done().
func (p *Poller[S]) Run(ctx context.Context) {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.fetchOnce(ctx) {
		return
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.fetchOnce(ctx) {
				return
			}
		case <-p.Wake:
			if p.fetchOnce(ctx) {
				return
			}
		}
	}
}

func (p *Poller[S]) fetchOnce(ctx context.Context) (stop bool) {
	observability.PollCycles.WithLabelValues(p.Subject).Inc()
	snap, err := p.Fetch(ctx)
	if ctx.Err() != nil {
		// The view went away while the fetch was in flight; whatever
		// came back must not be applied.
		return true
	}
	if err != nil {
		observability.PollFailures.WithLabelValues(p.Subject).Inc()
		p.Logger.Warn("poll fetch failed", "subject", p.Subject, "error", err)
		return false
	}
	v := snap.StateVersion()
	if v < p.last {
		observability.StaleDrops.WithLabelValues(p.Subject).Inc()
		p.Logger.Debug("dropping stale snapshot", "subject", p.Subject, "version", v, "last", p.last)
		return false
	}
	p.last = v
	p.Apply(snap)
	if p.Done != nil && p.Done(snap) {
		p.Logger.Info("poller reached terminal state", "subject", p.Subject)
		return true
	}
	return false
}
