package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/example/mototaxi/internal/models"
)

type CreateRequestParams struct {
	Origin        models.Place         `json:"origin"`
	Destination   models.Place         `json:"destination"`
	OfferedPrice  float64              `json:"offered_price"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	// ExpiresAt is optional; the backend applies its default window when zero.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Validate catches missing fields before anything reaches the network.
func (p CreateRequestParams) Validate() error {
	var errs []error
	if p.Origin.Coord == (models.Coord{}) {
		errs = append(errs, errors.New("origin coordinates required"))
	}
	if p.Destination.Coord == (models.Coord{}) {
		errs = append(errs, errors.New("destination coordinates required"))
	}
	if p.OfferedPrice < 0.01 {
		errs = append(errs, errors.New("offered price must be at least 0.01"))
	}
	switch p.PaymentMethod {
	case models.PayCash, models.PayCard, models.PayTransfer:
	default:
		errs = append(errs, fmt.Errorf("unknown payment method %q", p.PaymentMethod))
	}
	return errors.Join(errs...)
}

func (c *Client) CreateRequest(ctx context.Context, p CreateRequestParams) (models.Request, error) {
	if err := p.Validate(); err != nil {
		return models.Request{}, err
	}
	var req models.Request
	if err := c.post(ctx, "/transport/requests", p, &req); err != nil {
		return models.Request{}, err
	}
	return req, nil
}

// RequestStatus fetches the current snapshot of a pending or resolved
// request. This is the poller's fetch operation on the waiting screen.
func (c *Client) RequestStatus(ctx context.Context, requestID string) (models.RequestSnapshot, error) {
	var snap models.RequestSnapshot
	err := c.get(ctx, "/transport/requests/"+requestID+"/status", nil, &snap)
	return snap, err
}

func (c *Client) CancelRequest(ctx context.Context, requestID string) error {
	return c.post(ctx, "/transport/requests/"+requestID+"/cancel", nil, nil)
}

// AvailableRequests lists pending requests near a point, for the driver's
// browse screen.
func (c *Client) AvailableRequests(ctx context.Context, at models.Coord, radiusKm float64) ([]models.Request, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", at.Lat))
	q.Set("lng", fmt.Sprintf("%.6f", at.Lng))
	q.Set("radius_km", fmt.Sprintf("%.1f", radiusKm))
	var out struct {
		Requests []models.Request `json:"requests"`
	}
	if err := c.get(ctx, "/transport/requests/available", q, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// AcceptRequest claims a pending request for the authenticated driver and
// returns the identifier of the trip the backend created from it.
func (c *Client) AcceptRequest(ctx context.Context, requestID, motoID string) (string, error) {
	body := map[string]string{}
	if motoID != "" {
		body["moto_id"] = motoID
	}
	var out struct {
		TripID string `json:"trip_id"`
	}
	if err := c.post(ctx, "/transport/requests/"+requestID+"/accept", body, &out); err != nil {
		return "", err
	}
	return out.TripID, nil
}
