package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/example/mototaxi/internal/models"
)

// UpdateLocation reports the driver's position. Called on a 5–10s cadence
// while the driver client is foregrounded.
func (c *Client) UpdateLocation(ctx context.Context, at models.Coord) error {
	return c.post(ctx, "/transport/drivers/location", at, nil)
}

func (c *Client) SetAvailability(ctx context.Context, state models.AvailabilityState) error {
	body := map[string]string{"state": string(state)}
	return c.post(ctx, "/transport/drivers/availability", body, nil)
}

func (c *Client) AvailableDrivers(ctx context.Context, at models.Coord, radiusKm float64) ([]models.DriverSummary, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", at.Lat))
	q.Set("lng", fmt.Sprintf("%.6f", at.Lng))
	q.Set("radius_km", fmt.Sprintf("%.1f", radiusKm))
	var out struct {
		Drivers []models.DriverSummary `json:"drivers"`
	}
	if err := c.get(ctx, "/transport/drivers/available", q, &out); err != nil {
		return nil, err
	}
	return out.Drivers, nil
}
