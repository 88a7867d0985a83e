// Package settings caches the backend's /setting collection merged onto
// hardcoded defaults.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/clients/backend"
	"github.com/FurmanovVitaliy/logger"
)

// Tag is the cache tag that covers every setting read.
const Tag = "settings"

const maxFetchAttempts = 3

var (
	ErrUnknownLabel = errors.New("unknown setting label")
	ErrFetchFailed  = errors.New("failed to fetch settings")
	ErrUpdateFailed = errors.New("failed to update setting")
)

type Backend interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
}

// Store is safe for concurrent use. Readers see either the snapshot before an
// invalidation or a complete refetch, never a partial one.
type Store struct {
	log          *slog.Logger
	api          Backend
	language     string
	defaultsOnly bool

	load     sync.Mutex
	snapshot atomic.Pointer[map[models.SettingLabel]any]
	// generation is bumped by Invalidate; a fetch that saw an older one is
	// never stored.
	generation atomic.Uint64
	fetches    atomic.Int64
}

// New creates a settings store. With defaultsOnly the backend is never called.
func New(log *slog.Logger, api Backend, language string, defaultsOnly bool) *Store {
	return &Store{
		log:          log,
		api:          api,
		language:     language,
		defaultsOnly: defaultsOnly,
	}
}

// All returns every setting. The map is a copy.
func (s *Store) All(ctx context.Context) (map[models.SettingLabel]any, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[models.SettingLabel]any, len(snap))
	for k, v := range snap {
		out[k] = v
	}
	return out, nil
}

// Get returns one setting, loading the collection on first use.
func (s *Store) Get(ctx context.Context, label models.SettingLabel) (any, error) {
	if !Known(label) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap[label], nil
}

func (s *Store) current(ctx context.Context) (map[models.SettingLabel]any, error) {
	if p := s.snapshot.Load(); p != nil {
		return *p, nil
	}

	s.load.Lock()
	defer s.load.Unlock()
	if p := s.snapshot.Load(); p != nil {
		return *p, nil
	}

	for attempt := 1; ; attempt++ {
		gen := s.generation.Load()
		snap, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if s.generation.Load() == gen {
			s.snapshot.Store(&snap)
			return snap, nil
		}
		if attempt == maxFetchAttempts {
			// still being written to; serve this read uncached
			return snap, nil
		}
	}
}

func (s *Store) fetch(ctx context.Context) (map[models.SettingLabel]any, error) {
	const op = "settings.Store.fetch"
	log := s.log.With(logger.StringAttr("op", op))

	merged := Defaults()
	if s.defaultsOnly {
		return merged, nil
	}

	s.fetches.Add(1)
	resp, err := s.api.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   "/setting",
		Header: http.Header{"Accept-Language": {s.language}},
	})
	if err != nil {
		log.Error("settings call failed", logger.ErrAttr(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrFetchFailed, err)
	}
	if !resp.OK() {
		log.Error("settings call rejected", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%s: %w: HTTP %d", op, ErrFetchFailed, resp.StatusCode)
	}

	var env models.Envelope[[]models.Setting]
	if err := resp.Decode(&env); err != nil {
		log.Error("settings response is not an envelope", logger.ErrAttr(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrFetchFailed, err)
	}

	for _, item := range env.Data {
		if !Known(item.Label) {
			continue
		}
		merged[item.Label] = Coerce(item.Label, item.Value)
	}

	log.Debug("settings loaded", slog.Int("received", len(env.Data)))
	return merged, nil
}

// Invalidate drops the snapshot; the next read refetches. A fetch already
// in flight is discarded and retried.
func (s *Store) Invalidate() {
	s.generation.Add(1)
	s.snapshot.Store(nil)
}

// Update writes one setting. It never patches the snapshot: when persisting
// the next read reflects what the backend stored.
func (s *Store) Update(ctx context.Context, label models.SettingLabel, value any, persist bool) (models.Envelope[models.Setting], error) {
	const op = "settings.Store.Update"
	log := s.log.With(
		logger.StringAttr("op", op),
		logger.StringAttr("label", string(label)),
	)

	if !Known(label) {
		return models.Envelope[models.Setting]{}, fmt.Errorf("%s: %w: %s", op, ErrUnknownLabel, label)
	}
	defer s.Invalidate()

	if !persist {
		return models.NewEnvelope(models.Setting{Label: label, Value: Coerce(label, value)}, "", 0), nil
	}

	resp, err := s.api.Do(ctx, backend.Request{
		Method: http.MethodPut,
		Path:   "/setting/" + string(label),
		Header: http.Header{"Accept-Language": {s.language}},
		Body: map[string]any{
			"value":   value,
			"version": 0,
			"label":   label,
		},
	})
	if err != nil {
		log.Error("setting update call failed", logger.ErrAttr(err))
		return models.Envelope[models.Setting]{}, fmt.Errorf("%s: %w: %w", op, ErrUpdateFailed, err)
	}
	if !resp.OK() {
		log.Warn("setting update rejected", slog.Int("status", resp.StatusCode))
		return models.Envelope[models.Setting]{}, fmt.Errorf("%s: %w: HTTP %d", op, ErrUpdateFailed, resp.StatusCode)
	}

	var env models.Envelope[models.Setting]
	if err := resp.Decode(&env); err != nil {
		return models.Envelope[models.Setting]{}, fmt.Errorf("%s: %w: %w", op, ErrUpdateFailed, err)
	}

	log.Info("setting updated")
	return env, nil
}

// Fetches reports how many times the backend was asked for settings.
func (s *Store) Fetches() int64 {
	return s.fetches.Load()
}
