package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/example/mototaxi/internal/models"
)

// The geo endpoints proxy the backend's geocoding and routing providers so
// the client never talks to them directly.

func (c *Client) Autocomplete(ctx context.Context, query string, limit int) ([]models.Suggestion, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var out struct {
		Predictions []models.Suggestion `json:"predictions"`
	}
	if err := c.get(ctx, "/geo/autocomplete", q, &out); err != nil {
		return nil, err
	}
	return out.Predictions, nil
}

func (c *Client) Geocode(ctx context.Context, query string) (models.Place, error) {
	q := url.Values{}
	q.Set("q", query)
	var p models.Place
	err := c.get(ctx, "/geo/geocode", q, &p)
	return p, err
}

func (c *Client) ReverseGeocode(ctx context.Context, at models.Coord) (models.Place, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", at.Lat))
	q.Set("lng", fmt.Sprintf("%.6f", at.Lng))
	var p models.Place
	err := c.get(ctx, "/geo/reverse", q, &p)
	return p, err
}

// RouteBetween asks the routing provider for distance, duration and a
// drawable polyline between two points.
func (c *Client) RouteBetween(ctx context.Context, origin, destination models.Coord) (models.Route, error) {
	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%.6f,%.6f", origin.Lat, origin.Lng))
	q.Set("destination", fmt.Sprintf("%.6f,%.6f", destination.Lat, destination.Lng))
	var r models.Route
	err := c.get(ctx, "/geo/route", q, &r)
	return r, err
}
