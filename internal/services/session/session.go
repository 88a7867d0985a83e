// Package session owns the browser session: the access token, the refresh
// token and the flag cookies that describe them.
//
// Manager methods take the cookie store explicitly so the storage medium can
// be swapped (HTTP cookies, sealed cookies, an in-memory jar in tests).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/clients/backend"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/jwt"
	"github.com/FurmanovVitaliy/ims-dashboard/utils"
	"github.com/FurmanovVitaliy/logger"
)

const (
	AccessCookie   = "session_token"
	RefreshCookie  = "refresh_token"
	FlagCookie     = "is_authenticated"
	RememberCookie = "remember_me"
)

const defaultAuthFailure = "Authentication failed"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoSession          = errors.New("no session")
	ErrRefreshFailed      = errors.New("session refresh failed")
)

// AuthError carries the message the backend gave for a rejected login.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return ErrInvalidCredentials }

// CookieStore is where the session is persisted.
type CookieStore interface {
	Get(name string) (string, bool)
	Set(c *http.Cookie) error
	Delete(name string) error
}

// Backend is the inventory API.
type Backend interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
}

type Options struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	RememberTTL time.Duration
	FlagTTL     time.Duration
	Leeway      time.Duration
	Secure      bool
	// Language is sent as Accept-Language on auth calls.
	Language string
}

func DefaultOptions() Options {
	return Options{
		AccessTTL:   75 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
		RememberTTL: 30 * 24 * time.Hour,
		FlagTTL:     30 * time.Minute,
		Leeway:      120 * time.Second,
		Language:    "kh",
	}
}

type Manager struct {
	log  *slog.Logger
	api  Backend
	opts Options
	now  func() time.Time
}

// New creates a new session manager.
func New(log *slog.Logger, api Backend, opts Options) *Manager {
	return &Manager{
		log:  log,
		api:  api,
		opts: opts,
		now:  time.Now,
	}
}

// Authenticate exchanges credentials for a token pair. The password is only
// forwarded, never stored or logged.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (models.TokenPair, error) {
	const op = "session.Manager.Authenticate"
	log := m.log.With(
		logger.StringAttr("op", op),
		logger.StringAttr("username", utils.MaskUsername(username)),
	)

	resp, err := m.api.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Header: http.Header{"Accept-Language": {m.opts.Language}},
		Body:   map[string]string{"username": username, "password": password},
	})
	if err != nil {
		log.Error("login call failed", logger.ErrAttr(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	var env models.Envelope[models.TokenPair]
	decodeErr := resp.Decode(&env)

	if !resp.OK() {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = defaultAuthFailure
		}
		log.Warn("login rejected", slog.Int("status", resp.StatusCode))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, &AuthError{Message: msg})
	}

	if decodeErr != nil || env.Data.Token == "" || env.Data.RefreshToken == "" {
		log.Error("login response carries no tokens")
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if _, err := jwt.Decode(env.Data.Token); err != nil {
		log.Error("login returned an undecodable access token", logger.ErrAttr(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	log.Info("user authenticated")
	return env.Data, nil
}

// CreateSession persists pair into store. The refresh cookie lives 30 days
// with rememberMe and 7 days without.
func (m *Manager) CreateSession(store CookieStore, pair models.TokenPair, rememberMe bool) error {
	const op = "session.Manager.CreateSession"

	refreshTTL := m.opts.RefreshTTL
	if rememberMe {
		refreshTTL = m.opts.RememberTTL
	}

	cookies := []*http.Cookie{
		m.cookie(RefreshCookie, pair.RefreshToken, refreshTTL, true),
		m.cookie(AccessCookie, pair.Token, m.opts.AccessTTL, true),
		m.cookie(FlagCookie, "true", m.opts.FlagTTL, false),
	}
	if rememberMe {
		cookies = append(cookies, m.cookie(RememberCookie, "true", m.opts.RememberTTL, false))
	}

	for _, c := range cookies {
		if err := store.Set(c); err != nil {
			return fmt.Errorf("%s: %s: %w", op, c.Name, err)
		}
	}
	if !rememberMe {
		if err := store.Delete(RememberCookie); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (m *Manager) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: httpOnly,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IsExpired reports whether token is expired once the leeway is added.
func (m *Manager) IsExpired(token string) bool {
	return jwt.IsExpired(token, m.opts.Leeway, m.now())
}

// AccessToken returns the stored access token.
func (m *Manager) AccessToken(store CookieStore) (string, bool) {
	return store.Get(AccessCookie)
}

// Refresh asks the backend for a new token pair. A response without a new
// refresh token keeps the current one.
func (m *Manager) Refresh(ctx context.Context, store CookieStore) (models.TokenPair, error) {
	const op = "session.Manager.Refresh"
	log := m.log.With(logger.StringAttr("op", op))

	refresh, ok := store.Get(RefreshCookie)
	if !ok {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrNoSession)
	}

	resp, err := m.api.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh-token",
		Header: http.Header{
			"Authorization":   {"Bearer " + refresh},
			"Accept-Language": {m.opts.Language},
		},
		Body: map[string]string{"refreshToken": refresh},
	})
	if err != nil {
		log.Warn("refresh call failed", logger.ErrAttr(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrRefreshFailed, err)
	}
	if !resp.OK() {
		log.Info("refresh rejected", slog.Int("status", resp.StatusCode))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}

	var env models.Envelope[models.TokenPair]
	if err := resp.Decode(&env); err != nil || env.Data.Token == "" {
		log.Error("refresh response carries no access token")
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}
	if env.Data.RefreshToken == "" {
		env.Data.RefreshToken = refresh
	}

	log.Debug("session refreshed")
	return env.Data, nil
}

// Renew refreshes and persists the new pair, honouring remember_me. A failed
// refresh clears the session.
func (m *Manager) Renew(ctx context.Context, store CookieStore) (models.TokenPair, error) {
	const op = "session.Manager.Renew"

	pair, err := m.Refresh(ctx, store)
	if err != nil {
		if clearErr := m.Clear(store); clearErr != nil {
			m.log.With(logger.StringAttr("op", op)).Error("failed to clear dead session", logger.ErrAttr(clearErr))
		}
		return models.TokenPair{}, err
	}

	remember, _ := store.Get(RememberCookie)
	if err := m.CreateSession(store, pair, remember == "true"); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Ensure returns a usable access token, refreshing when it is missing or
// expired.
func (m *Manager) Ensure(ctx context.Context, store CookieStore) (string, error) {
	if access, ok := store.Get(AccessCookie); ok && !m.IsExpired(access) {
		return access, nil
	}
	if _, ok := store.Get(RefreshCookie); !ok {
		return "", ErrNoSession
	}
	pair, err := m.Renew(ctx, store)
	if err != nil {
		return "", err
	}
	return pair.Token, nil
}

// Clear removes every session cookie. Clearing twice is the same as once.
func (m *Manager) Clear(store CookieStore) error {
	var errs []error
	for _, name := range []string{RefreshCookie, AccessCookie, FlagCookie, RememberCookie} {
		if err := store.Delete(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Session reads the session back from store.
func (m *Manager) Session(store CookieStore) (models.Session, error) {
	const op = "session.Manager.Session"

	access, hasAccess := store.Get(AccessCookie)
	refresh, hasRefresh := store.Get(RefreshCookie)
	if !hasAccess && !hasRefresh {
		return models.Session{}, ErrNoSession
	}

	s := models.Session{AccessToken: access, RefreshToken: refresh}

	if hasAccess {
		claims, err := jwt.Decode(access)
		if err != nil || claims.UserID == 0 {
			m.clearQuietly(store, op)
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
		if claims.ExpiresAt != nil {
			s.AccessTokenExpiry = claims.ExpiresAt.Time
		}
		s.User = userFromClaims(claims)
	}

	if hasRefresh {
		// Opaque refresh tokens are bounded by the cookie lifetime only.
		if exp, err := jwt.ExpiresAt(refresh); err == nil {
			s.RefreshTokenExpiry = exp
		}
	}
	return s, nil
}

// Current returns the signed-in user. A missing access cookie with a refresh
// cookie triggers a refresh first. Undecodable tokens end the session.
func (m *Manager) Current(ctx context.Context, store CookieStore) (models.UserAuth, error) {
	const op = "session.Manager.Current"

	access, ok := store.Get(AccessCookie)
	if !ok {
		if _, hasRefresh := store.Get(RefreshCookie); !hasRefresh {
			return models.UserAuth{}, ErrNoSession
		}
		pair, err := m.Renew(ctx, store)
		if err != nil {
			return models.UserAuth{}, fmt.Errorf("%s: %w", op, ErrNoSession)
		}
		access = pair.Token
	}

	claims, err := jwt.Decode(access)
	if err != nil || claims.UserID == 0 {
		m.clearQuietly(store, op)
		return models.UserAuth{}, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	return userFromClaims(claims), nil
}

func (m *Manager) clearQuietly(store CookieStore, op string) {
	log := m.log.With(logger.StringAttr("op", op))
	log.Warn("undecodable access token, ending session")
	if err := m.Clear(store); err != nil {
		log.Error("failed to clear session", logger.ErrAttr(err))
	}
}

func userFromClaims(c *jwt.Claims) models.UserAuth {
	return models.UserAuth{
		ID:          c.UserID,
		Name:        c.Name,
		Username:    c.Username,
		Avatar:      c.Avatar,
		RoleName:    c.RoleName,
		Permissions: c.Permissions(),
	}
}
