package api

import (
	"context"
	"fmt"

	"github.com/example/mototaxi/internal/models"
)

type RateTripParams struct {
	TripID  string `json:"trip_id"`
	RatedID string `json:"rated_id"`
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

func (c *Client) RateTrip(ctx context.Context, p RateTripParams) (models.Rating, error) {
	if p.Score < 1 || p.Score > 5 {
		return models.Rating{}, fmt.Errorf("score must be 1..5, got %d", p.Score)
	}
	var r models.Rating
	if err := c.post(ctx, "/transport/ratings", p, &r); err != nil {
		return models.Rating{}, err
	}
	return r, nil
}

func (c *Client) MyRatings(ctx context.Context) ([]models.Rating, error) {
	return c.listRatings(ctx, "/transport/ratings/mine")
}

func (c *Client) ReceivedRatings(ctx context.Context) ([]models.Rating, error) {
	return c.listRatings(ctx, "/transport/ratings/received")
}

func (c *Client) listRatings(ctx context.Context, path string) ([]models.Rating, error) {
	var out struct {
		Ratings []models.Rating `json:"ratings"`
	}
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Ratings, nil
}
