// Package stream is the push transport for trip state: a websocket
// subscription with the same delivery contract as the poller. Callers fall
// back to polling when the dial fails.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/example/mototaxi/internal/models"
)

// TripSubscriber receives every trip snapshot the backend pushes, in the
// same shape the polling path delivers, with the same staleness guard.
type TripSubscriber struct {
	// BaseURL is the backend's HTTP base; the ws scheme is derived.
	BaseURL string
	TripID  string
	Token   string
	Apply   func(models.Trip)
	Done    func(models.Trip) bool
	Logger  *slog.Logger

	last int64
}

// Run dials and consumes until the context ends, the connection drops, or
// Done reports a terminal snapshot. A nil return means the subscription
// ended cleanly; an error means the caller should fall back to polling.
func (s *TripSubscriber) Run(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	u := wsURL(s.BaseURL) + "/ws/trips/" + s.TripID
	hdr := http.Header{}
	if s.Token != "" {
		hdr.Set("Authorization", "Bearer "+s.Token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, hdr)
	if err != nil {
		return fmt.Errorf("dial trip stream: %w", err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the view goes away.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var t models.Trip
		if err := conn.ReadJSON(&t); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read trip stream: %w", err)
		}
		if ctx.Err() != nil {
			// Arrived after cancellation; never applied.
			return nil
		}
		if t.Version < s.last {
			s.Logger.Debug("dropping stale pushed snapshot", "trip_id", s.TripID, "version", t.Version)
			continue
		}
		s.last = t.Version
		s.Apply(t)
		if s.Done != nil && s.Done(t) {
			return nil
		}
	}
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimRight(strings.TrimPrefix(base, "https://"), "/")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimRight(strings.TrimPrefix(base, "http://"), "/")
	}
	return strings.TrimRight(base, "/")
}
