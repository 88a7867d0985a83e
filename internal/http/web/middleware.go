package web

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/cookies"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/session"
	"github.com/FurmanovVitaliy/ims-dashboard/utils"
	"github.com/FurmanovVitaliy/logger"
)

// Paths served regardless of maintenance mode.
var maintenanceExempt = []string{"/maintenance", "/settings", "/api/setting", "/healthz", "/static", "/favicon.ico"}

// Paths served without a session.
var publicRoutes = []string{"/healthz", "/maintenance", "/static", "/favicon.ico", "/api/public"}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.log.Error("panic while serving request",
					slog.Any("panic", v),
					logger.StringAttr("path", r.URL.Path),
					logger.StringAttr("stack", string(debug.Stack())),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		userAgent, clientIP := utils.ExtractRequestMetadata(r)
		s.log.Info("request served",
			logger.StringAttr("method", r.Method),
			logger.StringAttr("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
			logger.StringAttr("ip", clientIP),
			logger.StringAttr("user_agent", userAgent),
		)
	})
}

// withCookies binds a cookie store to the request, sealed when a secret is
// configured.
func (s *Server) withCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var st cookies.Store = cookies.NewHTTP(w, r)
		if s.sealer != nil {
			st = s.sealer.Wrap(st)
		}
		next.ServeHTTP(w, r.WithContext(cookies.WithStore(r.Context(), st)))
	})
}

func (s *Server) maintenance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if matchesAny(r.URL.Path, maintenanceExempt) || !s.settings.Maintenance(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}
		if isAPI(r.URL.Path) {
			writeEnvelope(w, http.StatusServiceUnavailable, nil, "Service under maintenance")
			return
		}
		redirect(w, r, "/maintenance")
	})
}

// guard lets public routes through, bounces signed-in users away from the
// sign-in page, and refreshes or rejects everything else.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		st := store(w, r)

		if r.URL.Path == "/signin" {
			if r.Method == http.MethodGet && s.signedIn(r, st) {
				redirect(w, r, "/")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if matchesAny(r.URL.Path, publicRoutes) {
			next.ServeHTTP(w, r)
			return
		}

		if _, err := s.sessions.Ensure(ctx, st); err != nil {
			s.reject(w, r, err)
			return
		}
		user, err := s.sessions.Current(ctx, st)
		if err != nil {
			s.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(ctx, user)))
	})
}

// signedIn reports whether the request carries a usable session, refreshing
// it when only the refresh token is still valid.
func (s *Server) signedIn(r *http.Request, st cookies.Store) bool {
	if access, ok := s.sessions.AccessToken(st); ok && !s.sessions.IsExpired(access) {
		return true
	}
	_, err := s.sessions.Ensure(r.Context(), st)
	return err == nil
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, session.ErrNoSession) {
		s.log.Info("session rejected", logger.StringAttr("path", r.URL.Path), logger.ErrAttr(err))
	}
	if isAPI(r.URL.Path) {
		writeEnvelope(w, http.StatusUnauthorized, nil, "Unauthorized")
		return
	}
	callback := "/"
	if r.Method == http.MethodGet {
		callback = r.URL.RequestURI()
	}
	redirect(w, r, signinURL(callback))
}

// rateLimit caps sign-in attempts per client IP. The burst follows the
// IMS_MAX_LOGIN_ATTEMPTS setting. Forwarding headers count only when the
// peer is a trusted proxy.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := utils.ClientIP(r, s.trusted)
		burst := s.settings.MaxLoginAttempts(r.Context())
		if !s.limiter.Allow(clientIP, burst) {
			s.log.Warn("sign-in rate limit hit", logger.StringAttr("ip", clientIP))
			s.renderSignin(w, r, http.StatusTooManyRequests, signinView{
				CallbackURL: r.FormValue("callbackUrl"),
				Error:       msgTooMany,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
