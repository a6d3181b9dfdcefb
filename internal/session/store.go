// Package session keeps the signed-in user and their token pair in the local
// store.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/apiclient"
	"github.com/angelmondragon/storefront/internal/users"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/storage"
	"go.uber.org/multierr"
)

const authRequiredMessage = "authentication required"

// Remote is the subset of the API client the session depends on.
type Remote interface {
	Profile(ctx context.Context, accessToken string) (*users.User, error)
	Refresh(ctx context.Context, refreshToken string) (*apiclient.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

// Options configures a Store.
type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.PersistenceMetrics
}

// Store is the only writer of the user record and the token entries.
type Store struct {
	mu      sync.Mutex
	kv      storage.Store
	remote  Remote
	logg    *logger.Logger
	metrics *metrics.PersistenceMetrics

	user         *users.User
	accessToken  string
	refreshToken string
}

// NewStore builds a session store and loads any persisted session.
func NewStore(ctx context.Context, kv storage.Store, remote Remote, opts Options) (*Store, error) {
	if kv == nil {
		return nil, errors.New("session store required")
	}
	if remote == nil {
		return nil, errors.New("session remote required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{
		kv:      kv,
		remote:  remote,
		logg:    logg,
		metrics: opts.Metrics,
	}
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the session from the store. A missing or unreadable user record
// yields nil.
func (s *Store) Load(ctx context.Context) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user users.User
	ok, err := storage.GetJSON(ctx, s.kv, storage.KeyUserData, &user)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load session")
	}
	access, err := s.readToken(ctx, storage.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.readToken(ctx, storage.KeyRefreshToken)
	if err != nil {
		return nil, err
	}

	s.accessToken = access
	s.refreshToken = refresh
	if !ok || !user.Valid() {
		s.user = nil
		return nil, nil
	}
	s.user = &user
	return cloneUser(s.user), nil
}

func (s *Store) readToken(ctx context.Context, key string) (string, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load session")
	}
	return raw, nil
}

// Save persists user and both tokens. The in-memory session only changes when
// every write succeeds.
func (s *Store) Save(ctx context.Context, user users.User, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, user, accessToken, refreshToken)
}

func (s *Store) saveLocked(ctx context.Context, user users.User, accessToken, refreshToken string) error {
	if !user.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and username are required")
	}
	if strings.TrimSpace(accessToken) == "" || strings.TrimSpace(refreshToken) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access and refresh tokens are required")
	}

	writes := []struct {
		key   string
		write func() error
	}{
		{storage.KeyUserData, func() error { return storage.SetJSON(ctx, s.kv, storage.KeyUserData, user) }},
		{storage.KeyAccessToken, func() error { return s.kv.Set(ctx, storage.KeyAccessToken, accessToken) }},
		{storage.KeyRefreshToken, func() error { return s.kv.Set(ctx, storage.KeyRefreshToken, refreshToken) }},
	}
	for _, w := range writes {
		if err := s.timed(w.key, w.write); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save session")
		}
	}

	s.user = cloneUser(&user)
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.logg.Info(s.logg.WithUserID(ctx, user.ID), "session saved")
	return nil
}

// Clear removes the user and both tokens. Failures are logged; the in-memory
// session is always dropped.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) {
	var errs error
	for _, key := range []string{storage.KeyUserData, storage.KeyAccessToken, storage.KeyRefreshToken} {
		errs = multierr.Append(errs, s.timed(key, func() error {
			if err := s.kv.Remove(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return nil
		}))
	}
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	if errs != nil {
		s.logg.Error(ctx, "failed to clear session", errs)
	}
}

// Refresh re-fetches the profile with the stored access token and persists
// it. On failure the session is left as it was.
func (s *Store) Refresh(ctx context.Context) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, authRequiredMessage)
	}
	user, err := s.remote.Profile(ctx, s.accessToken)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "failed to fetch profile")
	}
	err = s.timed(storage.KeyUserData, func() error {
		return storage.SetJSON(ctx, s.kv, storage.KeyUserData, user)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save profile")
	}
	s.user = cloneUser(user)
	return cloneUser(user), nil
}

// RefreshTokens exchanges the stored refresh token for a new pair and persists
// the result. On failure the session is left as it was.
func (s *Store) RefreshTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, authRequiredMessage)
	}
	resp, err := s.remote.Refresh(ctx, s.refreshToken)
	if err != nil {
		return err
	}
	return s.saveLocked(ctx, resp.User, resp.Tokens.AccessToken, resp.Tokens.RefreshToken)
}

// Logout revokes the session remotely when a token is held, then clears it
// locally whatever the remote outcome.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" {
		if err := s.remote.Logout(ctx, s.accessToken); err != nil {
			s.logg.Warn(s.logg.WithError(ctx, err), "remote logout failed")
		}
	}
	s.clearLocked(ctx)
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.user)
}

// AccessToken returns the stored access token or an UNAUTHORIZED error.
func (s *Store) AccessToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, authRequiredMessage)
	}
	return s.accessToken, nil
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.accessToken != ""
}

func (s *Store) timed(key string, write func() error) error {
	start := time.Now()
	err := write()
	s.metrics.ObserveWrite(key, time.Since(start), err)
	return err
}

func cloneUser(user *users.User) *users.User {
	if user == nil {
		return nil
	}
	out := *user
	return &out
}
