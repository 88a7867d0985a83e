package app

import (
	"context"
	"fmt"
	"log/slog"

	httpapp "github.com/FurmanovVitaliy/ims-dashboard/internal/app/http"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/config"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/confirm"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/http/web"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/gateway"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/resource"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/session"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/settings"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/storage/memory"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/storage/redis"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/clients/backend"
	redisClient "github.com/FurmanovVitaliy/ims-dashboard/pkg/clients/redis"
)

type App struct {
	HTTPServer *httpapp.App
	// CacheConnection is nil unless the redis cache driver is configured.
	CacheConnection redisClient.RedisClient
}

func New(
	log *slog.Logger,
	cfg *config.Config,
) *App {

	api, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err != nil {
		panic(err)
	}

	app := &App{}

	var cache gateway.Cache
	switch cfg.Cache.Driver {
	case "redis":
		redisCacheClient, version, err := redisClient.NewRedisClient(context.Background(), cfg.Redis.ConnRetry, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.Database)
		if err != nil {
			panic(err)
		}
		log.Info("redis connected", slog.String("version", version))

		app.CacheConnection = redisCacheClient
		cache = redis.NewStorage(log, redisCacheClient, cfg.Cache.Prefix)
	case "", "memory":
		cache = memory.NewStorage(cfg.Cache.MaxEntries)
	default:
		panic(fmt.Sprintf("unknown cache driver: %q", cfg.Cache.Driver))
	}

	sessions := session.New(log, api, session.Options{
		AccessTTL:   cfg.Session.AccessTTL,
		RefreshTTL:  cfg.Session.RefreshTTL,
		RememberTTL: cfg.Session.RememberTTL,
		FlagTTL:     cfg.Session.FlagTTL,
		Leeway:      cfg.Session.Leeway,
		Secure:      cfg.Session.Secure,
		Language:    cfg.Backend.Language,
	})
	settingsStore := settings.New(log, api, cfg.Backend.Language, cfg.Settings.DefaultsOnly)
	gw := gateway.New(log, api, sessions, settingsStore, cache)
	resources := resource.New(log, gw)

	srv, err := web.New(log, sessions, settingsStore, resources, confirm.NewRegistry(), web.Options{
		CookieSecret:          cfg.Session.CookieSecret,
		PreviousCookieSecrets: cfg.Session.PreviousCookieSecrets,
		SigninPerMinute:       cfg.RateLimit.SigninPerMinute,
		TrustedProxies:        cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		panic(err)
	}

	app.HTTPServer = httpapp.New(
		log,
		cfg.HTTP.Port,
		cfg.HTTP.Timeout,
		cfg.HTTP.ReadHeaderTimeout,
		cfg.HTTP.ShutdownTimeout,
		srv.Handler(),
		srv.Limiter(),
	)

	return app
}
