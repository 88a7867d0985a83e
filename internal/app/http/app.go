package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/FurmanovVitaliy/logger"
)

// Runner is a background loop that lives as long as the server, such as the
// sign-in rate limiter's cleanup.
type Runner interface {
	Run(ctx context.Context)
}

type App struct {
	log             *slog.Logger
	httpServer      *http.Server
	port            int
	shutdownTimeout time.Duration
	background      []Runner
	ctx             context.Context
	cancel          context.CancelFunc
}

// New create a new HTTP Server
func New(
	log *slog.Logger,
	port int,
	timeout time.Duration,
	readHeaderTimeout time.Duration,
	shutdownTimeout time.Duration,
	handler http.Handler,
	background ...Runner,
) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		log: log,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           timeoutMiddleware(timeout)(handler),
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
		},
		port:            port,
		shutdownTimeout: shutdownTimeout,
		background:      background,
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "httpapp.App.Run"

	log := a.log.With(
		slog.String("op", op),
	)

	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return a.serve(l, log)
}

func (a *App) serve(l net.Listener, log *slog.Logger) error {
	const op = "httpapp.App.Run"

	for _, b := range a.background {
		go b.Run(a.ctx)
	}

	log.Info("http server is running", slog.String("addr", l.Addr().String()))
	if err := a.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.cancel()
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Stop() {
	const op = "httpapp.App.Stop"
	log := a.log.With(slog.String("op", op))

	log.Info("stopping HTTP server", slog.Int("port", a.port))
	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", logger.ErrAttr(err))
	}
}

func timeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
