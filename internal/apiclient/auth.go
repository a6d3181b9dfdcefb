package apiclient

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/internal/users"
)

// Register, Login, Logout, Refresh and Profile fail fast: none of them is
// retried.

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     req,
		out:      &out,
		fallback: "registration failed",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     req,
		out:      &out,
		fallback: "login failed",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the session server-side.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/logout",
		token:    accessToken,
		fallback: "logout failed",
	})
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/refresh",
		body:     refreshRequest{RefreshToken: refreshToken},
		out:      &out,
		fallback: "token refresh failed",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, accessToken string) (*users.User, error) {
	var out users.User
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/profile",
		token:    accessToken,
		out:      &out,
		fallback: "failed to fetch profile",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
