package api

import (
	"context"

	"github.com/example/mototaxi/internal/models"
)

// Credentials is the successful login payload: a token pair plus the
// profile the client caches locally.
type Credentials struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    models.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, username, password string) (Credentials, error) {
	body := map[string]string{"username": username, "password": password}
	var creds Credentials
	if err := c.post(ctx, "/auth/sign-in", body, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Logout invalidates the server-side session. Local credential cleanup is
// the session store's job and happens even when this call fails.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/sign-out", nil, nil)
}

type RegisterParams struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	IsDriver  bool   `json:"is_driver"`
}

func (c *Client) Register(ctx context.Context, p RegisterParams) (models.User, error) {
	var u models.User
	if err := c.post(ctx, "/auth/register", p, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}
