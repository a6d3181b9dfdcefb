// Package auth signs users in and out against the remote API and records the
// resulting session locally.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/users"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validators"
)

// Service defines the authentication flows available to the presentation layer.
type Service interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*users.User, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*users.User, error)
	Logout(ctx context.Context)
}

type remoteAuth interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.AuthResponse, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.AuthResponse, error)
}

type sessionStore interface {
	Save(ctx context.Context, user users.User, accessToken, refreshToken string) error
	Logout(ctx context.Context)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	API     remoteAuth
	Session sessionStore
	Logger  *logger.Logger
}

type service struct {
	api     remoteAuth
	session sessionStore
	logg    *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, errors.New("api client required")
	}
	if params.Session == nil {
		return nil, errors.New("session store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		api:     params.API,
		session: params.Session,
		logg:    logg,
	}, nil
}

// Login validates credentials locally, authenticates remotely, then saves the
// session. A session that cannot be saved fails the login.
func (s *service) Login(ctx context.Context, req apiclient.LoginRequest) (*users.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validators.Struct(req); err != nil {
		return nil, err
	}

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, resp)
}

// Register validates the new account locally, creates it remotely, then saves
// the session.
func (s *service) Register(ctx context.Context, req apiclient.RegisterRequest) (*users.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	req.FirstName = trimOptional(req.FirstName)
	req.LastName = trimOptional(req.LastName)
	if err := validators.Struct(req); err != nil {
		return nil, err
	}

	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, resp)
}

// Logout never fails from the caller's point of view.
func (s *service) Logout(ctx context.Context) {
	s.session.Logout(ctx)
}

func (s *service) establish(ctx context.Context, resp *apiclient.AuthResponse) (*users.User, error) {
	if resp == nil || !resp.User.Valid() || resp.Tokens.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "unexpected authentication response")
	}
	if err := s.session.Save(ctx, resp.User, resp.Tokens.AccessToken, resp.Tokens.RefreshToken); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, resp.User.ID), "failed to save session", err)
		return nil, err
	}
	user := resp.User
	s.logg.Info(s.logg.WithField(s.logg.WithUserID(ctx, user.ID), "display_name", user.DisplayName()), "session established")
	return &user, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
