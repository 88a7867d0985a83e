// Package gateway executes authenticated calls against the inventory API.
//
// Every call carries the locale and the bearer token of the browser whose
// cookie store is on the context. A 401 on an expired token triggers one
// refresh and one retry; anything else comes back as the backend sent it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/cookies"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/session"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/storage"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/clients/backend"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/jwt"
	"github.com/FurmanovVitaliy/ims-dashboard/utils"
	"github.com/FurmanovVitaliy/logger"
)

var (
	ErrSessionExpired = errors.New("session expired")
	ErrTransport      = errors.New("transport failure")
	ErrDecode         = errors.New("unreadable backend response")
)

type Backend interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
}

type Sessions interface {
	AccessToken(store session.CookieStore) (string, bool)
	IsExpired(token string) bool
	Renew(ctx context.Context, store session.CookieStore) (models.TokenPair, error)
}

type Settings interface {
	Language(ctx context.Context) string
	PageSize(ctx context.Context) int
}

// Cache stores tagged GET responses. Set refuses an entry whose Generation
// is older than the tags' current one.
type Cache interface {
	Get(ctx context.Context, key string) (storage.Entry, error)
	Generation(ctx context.Context, tags ...string) (uint64, error)
	Set(ctx context.Context, key string, entry storage.Entry, tags []string) error
	Invalidate(ctx context.Context, tags ...string) error
}

type Request struct {
	Method   string
	Endpoint string
	Body     any
	Params   url.Values
	// Tags mark a GET for caching or name what a mutation invalidates.
	Tags []string
}

type Response struct {
	StatusCode int
	Body       []byte
	Cached     bool
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Gateway struct {
	log      *slog.Logger
	api      Backend
	sessions Sessions
	settings Settings
	cache    Cache
	now      func() time.Time
}

// New creates a gateway. cache may be nil to disable response caching.
func New(log *slog.Logger, api Backend, sessions Sessions, settings Settings, cache Cache) *Gateway {
	return &Gateway{
		log:      log,
		api:      api,
		sessions: sessions,
		settings: settings,
		cache:    cache,
		now:      time.Now,
	}
}

// Do runs req with the session found on ctx.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	const op = "gateway.Gateway.Do"
	log := g.log.With(
		logger.StringAttr("op", op),
		logger.StringAttr("method", req.Method),
		logger.StringAttr("endpoint", req.Endpoint),
	)

	store, hasStore := cookies.FromContext(ctx)
	lang := g.settings.Language(ctx)

	params := url.Values{}
	for k, vs := range req.Params {
		params[k] = append([]string(nil), vs...)
	}
	if req.Method == http.MethodGet && params.Get("size") == "" {
		params.Set("size", strconv.Itoa(g.settings.PageSize(ctx)))
	}

	var token string
	if hasStore {
		token, _ = g.sessions.AccessToken(store)
	}

	cacheable := g.cache != nil && req.Method == http.MethodGet && len(req.Tags) > 0
	var (
		key string
		gen uint64
	)
	if cacheable {
		key = cacheKey(req.Method, req.Endpoint, params, lang, token)
		entry, err := g.cache.Get(ctx, key)
		switch {
		case err == nil:
			log.Debug("cache hit")
			return &Response{StatusCode: entry.Status, Body: entry.Body, Cached: true}, nil
		case !errors.Is(err, storage.ErrCacheMiss):
			log.Warn("cache read failed", logger.ErrAttr(err))
		}

		// read before the backend call so a write landing meanwhile
		// keeps this response out of the cache
		if gen, err = g.cache.Generation(ctx, req.Tags...); err != nil {
			log.Warn("cache generation read failed", logger.ErrAttr(err))
			cacheable = false
		}
	}

	resp, err := g.send(ctx, req, params, lang, token)
	if err != nil {
		log.Error("backend call failed", logger.ErrAttr(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && hasStore && g.sessions.IsExpired(token) {
		log.Info("access token expired, refreshing")
		pair, err := g.sessions.Renew(ctx, store)
		if err != nil {
			log.Warn("refresh failed", logger.ErrAttr(err))
			return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
		}
		token = pair.Token

		resp, err = g.send(ctx, req, params, lang, token)
		if err != nil {
			log.Error("retry after refresh failed", logger.ErrAttr(err))
			return nil, fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
		}
	}

	out := &Response{StatusCode: resp.StatusCode, Body: resp.Body}
	if !out.OK() || len(req.Tags) == 0 || g.cache == nil {
		return out, nil
	}

	if cacheable {
		key = cacheKey(req.Method, req.Endpoint, params, lang, token)
		entry := storage.Entry{Status: out.StatusCode, Body: out.Body, StoredAt: g.now(), Generation: gen}
		err := g.cache.Set(ctx, key, entry, req.Tags)
		switch {
		case errors.Is(err, storage.ErrStale):
			log.Debug("tags invalidated while fetching, not caching")
		case err != nil:
			log.Warn("cache write failed", logger.ErrAttr(err))
		}
		return out, nil
	}

	if req.Method != http.MethodGet {
		if err := g.cache.Invalidate(ctx, req.Tags...); err != nil {
			log.Warn("cache invalidation failed", logger.ErrAttr(err))
		}
	}
	return out, nil
}

func (g *Gateway) send(ctx context.Context, req Request, params url.Values, lang, token string) (*backend.Response, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Accept-Language", lang)
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	return g.api.Do(ctx, backend.Request{
		Method: req.Method,
		Path:   req.Endpoint,
		Query:  params,
		Header: header,
		Body:   req.Body,
	})
}

// Revalidate drops every cached read carrying one of tags.
func (g *Gateway) Revalidate(ctx context.Context, tags ...string) error {
	const op = "gateway.Gateway.Revalidate"
	if g.cache == nil || len(tags) == 0 {
		return nil
	}
	if err := g.cache.Invalidate(ctx, tags...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// cacheKey separates entries per user so one user's reads never reach another.
func cacheKey(method, endpoint string, params url.Values, lang, token string) string {
	user := "anonymous"
	if claims, err := jwt.Decode(token); err == nil {
		user = strconv.FormatInt(claims.UserID, 10)
	}
	return utils.HashKey(method, endpoint, params.Encode(), lang, user)
}

// Decode reads an envelope. Non-JSON error bodies become an envelope carrying
// the HTTP status so callers can still branch on it.
func Decode[T any](resp *Response) (models.Envelope[T], error) {
	var env models.Envelope[T]
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		if resp.OK() {
			return env, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		env.Status = resp.StatusCode
		env.Message = http.StatusText(resp.StatusCode)
		return env, nil
	}
	if env.Status == 0 && !resp.OK() {
		env.Status = resp.StatusCode
	}
	return env, nil
}

func Get[T any](ctx context.Context, g *Gateway, endpoint string, params url.Values, tags ...string) (models.Envelope[T], error) {
	resp, err := g.Do(ctx, Request{Method: http.MethodGet, Endpoint: endpoint, Params: params, Tags: tags})
	if err != nil {
		return models.Envelope[T]{}, err
	}
	return Decode[T](resp)
}

func Post[T any](ctx context.Context, g *Gateway, endpoint string, body any, tags ...string) (models.Envelope[T], error) {
	resp, err := g.Do(ctx, Request{Method: http.MethodPost, Endpoint: endpoint, Body: body, Tags: tags})
	if err != nil {
		return models.Envelope[T]{}, err
	}
	return Decode[T](resp)
}

func Put[T any](ctx context.Context, g *Gateway, endpoint string, body any, tags ...string) (models.Envelope[T], error) {
	resp, err := g.Do(ctx, Request{Method: http.MethodPut, Endpoint: endpoint, Body: body, Tags: tags})
	if err != nil {
		return models.Envelope[T]{}, err
	}
	return Decode[T](resp)
}

func Delete[T any](ctx context.Context, g *Gateway, endpoint string, tags ...string) (models.Envelope[T], error) {
	resp, err := g.Do(ctx, Request{Method: http.MethodDelete, Endpoint: endpoint, Tags: tags})
	if err != nil {
		return models.Envelope[T]{}, err
	}
	return Decode[T](resp)
}
