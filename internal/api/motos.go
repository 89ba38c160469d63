package api

import (
	"context"
	"errors"

	"github.com/example/mototaxi/internal/models"
)

type RegisterMotoParams struct {
	Plate string `json:"plate"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Color string `json:"color,omitempty"`
}

func (c *Client) RegisterMoto(ctx context.Context, p RegisterMotoParams) (models.Moto, error) {
	if p.Plate == "" {
		return models.Moto{}, errors.New("plate required")
	}
	var m models.Moto
	if err := c.post(ctx, "/transport/motos", p, &m); err != nil {
		return models.Moto{}, err
	}
	return m, nil
}

func (c *Client) MyMotos(ctx context.Context) ([]models.Moto, error) {
	var out struct {
		Motos []models.Moto `json:"motos"`
	}
	if err := c.get(ctx, "/transport/motos/mine", nil, &out); err != nil {
		return nil, err
	}
	return out.Motos, nil
}
