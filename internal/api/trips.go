package api

import (
	"context"

	"github.com/example/mototaxi/internal/models"
)

// Trip fetches the authoritative trip detail. This is the poller's fetch
// operation on the active-trip screen for both roles.
func (c *Client) Trip(ctx context.Context, tripID string) (models.Trip, error) {
	var t models.Trip
	err := c.get(ctx, "/transport/trips/"+tripID, nil, &t)
	return t, err
}

func (c *Client) MyTrips(ctx context.Context) ([]models.Trip, error) {
	var out struct {
		Trips []models.Trip `json:"trips"`
	}
	if err := c.get(ctx, "/transport/trips/mine", nil, &out); err != nil {
		return nil, err
	}
	return out.Trips, nil
}

// The transition commands below never mutate local state: the backend is
// the single arbiter and the next successful poll reflects the result.

func (c *Client) TripEnRoute(ctx context.Context, tripID string) error {
	return c.post(ctx, "/transport/trips/"+tripID+"/en_route", nil, nil)
}

func (c *Client) TripArrived(ctx context.Context, tripID string) error {
	return c.post(ctx, "/transport/trips/"+tripID+"/arrived", nil, nil)
}

func (c *Client) TripStart(ctx context.Context, tripID string) error {
	return c.post(ctx, "/transport/trips/"+tripID+"/start", nil, nil)
}

// TripComplete finishes the trip. finalPrice overrides the agreed price
// when non-nil (e.g. route changed mid-trip).
func (c *Client) TripComplete(ctx context.Context, tripID string, finalPrice *float64) error {
	body := map[string]any{}
	if finalPrice != nil {
		body["final_price"] = *finalPrice
	}
	return c.post(ctx, "/transport/trips/"+tripID+"/complete", body, nil)
}

func (c *Client) TripCancel(ctx context.Context, tripID string) error {
	return c.post(ctx, "/transport/trips/"+tripID+"/cancel", nil, nil)
}
