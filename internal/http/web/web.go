// Package web is the browser-facing surface of the dashboard: server-rendered
// screens, the sign-in flow and a small JSON API used by client scripts.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/confirm"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/cookies"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/locale"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/resource"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/session"
	"github.com/FurmanovVitaliy/ims-dashboard/utils"
	"github.com/FurmanovVitaliy/logger"
	"github.com/gorilla/mux"
)

type Sessions interface {
	Authenticate(ctx context.Context, username, password string) (models.TokenPair, error)
	CreateSession(store session.CookieStore, pair models.TokenPair, rememberMe bool) error
	AccessToken(store session.CookieStore) (string, bool)
	IsExpired(token string) bool
	Ensure(ctx context.Context, store session.CookieStore) (string, error)
	Current(ctx context.Context, store session.CookieStore) (models.UserAuth, error)
	Clear(store session.CookieStore) error
}

type Settings interface {
	All(ctx context.Context) (map[models.SettingLabel]any, error)
	Update(ctx context.Context, label models.SettingLabel, value any, persist bool) (models.Envelope[models.Setting], error)
	Language(ctx context.Context) string
	Maintenance(ctx context.Context) bool
	MaxLoginAttempts(ctx context.Context) int
	AppName(ctx context.Context) string
}

type Options struct {
	// CookieSecret seals every cookie when set. It must be at least 32 bytes.
	CookieSecret string
	// PreviousCookieSecrets still open cookies sealed before a rotation.
	PreviousCookieSecrets []string
	// SigninPerMinute is how fast a client IP regains sign-in attempts.
	SigninPerMinute float64
	// TrustedProxies are the CIDRs or addresses whose X-Forwarded-For is
	// believed when rate limiting.
	TrustedProxies []string
}

type Server struct {
	log       *slog.Logger
	sessions  Sessions
	settings  Settings
	resources *resource.Service
	gates     *confirm.Registry
	limiter   *RateLimiter
	views     *renderer
	sealer    *cookies.Sealer
	trusted   []netip.Prefix
}

// New creates the web server handlers.
func New(
	log *slog.Logger,
	sessions Sessions,
	settings Settings,
	resources *resource.Service,
	gates *confirm.Registry,
	opts Options,
) (*Server, error) {
	const op = "web.New"

	var sealer *cookies.Sealer
	if opts.CookieSecret != "" {
		k, err := cookies.NewSealer(opts.CookieSecret, opts.PreviousCookieSecrets...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sealer = k
	}

	trusted, err := utils.ParseTrustedProxies(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	views, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Server{
		log:       log,
		sessions:  sessions,
		settings:  settings,
		resources: resources,
		gates:     gates,
		limiter:   NewRateLimiter(opts.SigninPerMinute),
		views:     views,
		sealer:    sealer,
		trusted:   trusted,
	}, nil
}

// Limiter is the sign-in rate limiter; its cleanup loop is run by the caller.
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.healthz).Methods("GET")
	r.HandleFunc("/signin", s.signinForm).Methods("GET")
	r.Handle("/signin", s.rateLimit(http.HandlerFunc(s.signin))).Methods("POST")
	r.HandleFunc("/signout", s.signout).Methods("POST")
	r.HandleFunc("/maintenance", s.maintenancePage).Methods("GET")

	r.HandleFunc("/settings", s.settingsPage).Methods("GET")
	r.HandleFunc("/settings", s.saveSetting).Methods("POST")

	r.HandleFunc("/api/setting", s.apiSettings).Methods("GET")
	r.HandleFunc("/api/setting", s.apiUpdateSetting).Methods("PUT")
	r.HandleFunc("/api/{resource}/{id:[0-9]+}", s.apiFind).Methods("GET")
	r.HandleFunc("/api/{resource}", s.apiCreate).Methods("POST")
	r.HandleFunc("/api/{resource}/{id:[0-9]+}", s.apiUpdate).Methods("PUT")

	r.HandleFunc("/confirm/{ticket}", s.acceptConfirm).Methods("POST")
	r.HandleFunc("/confirm/{ticket}/cancel", s.cancelConfirm).Methods("POST")

	r.HandleFunc("/", s.home).Methods("GET")
	r.HandleFunc("/{screen}", s.listScreen).Methods("GET")
	r.HandleFunc("/{screen}/new", s.newForm).Methods("GET")
	r.HandleFunc("/{screen}/new", s.create).Methods("POST")
	r.HandleFunc("/{screen}/edit/{id:[0-9]+}", s.editForm).Methods("GET")
	r.HandleFunc("/{screen}/edit/{id:[0-9]+}", s.update).Methods("POST")
	r.HandleFunc("/{screen}/{id:[0-9]+}/delete", s.askDelete).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(s.notFound)

	return s.recoverer(s.logRequests(s.withCookies(s.maintenance(s.guard(r)))))
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userKey struct{}

func withUser(ctx context.Context, u models.UserAuth) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func userFrom(ctx context.Context) (models.UserAuth, bool) {
	u, ok := ctx.Value(userKey{}).(models.UserAuth)
	return u, ok
}

// store returns the request's cookie store. withCookies always installs one;
// the fallback keeps handlers usable on their own in tests.
func store(w http.ResponseWriter, r *http.Request) cookies.Store {
	if st, ok := cookies.FromContext(r.Context()); ok {
		return st
	}
	return cookies.NewHTTP(w, r)
}

func (s *Server) page(r *http.Request, title string, data any) page {
	ctx := r.Context()
	p := page{
		Title:   title,
		AppName: s.settings.AppName(ctx),
		Lang:    locale.Resolve(s.settings.Language(ctx)),
		Data:    data,
	}
	if u, ok := userFrom(ctx); ok {
		p.User = &u
		p.Nav = navigation(r.URL.Path)
	}
	return p
}

func navigation(current string) []navItem {
	items := make([]navItem, 0, len(resource.Kinds))
	for _, k := range resource.Kinds {
		href := "/" + k.Screen
		items = append(items, navItem{
			Title:  k.Title,
			Href:   href,
			Active: current == href || strings.HasPrefix(current, href+"/"),
		})
	}
	return items
}

// render writes a page. A pending flash toast is shown unless p carries one.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if p.Toast == nil {
		p.Toast = popFlash(store(w, r))
	}
	if err := s.views.render(w, status, name, p); err != nil {
		s.log.Error("failed to render page", logger.StringAttr("page", name), logger.ErrAttr(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	p := s.page(r, http.StatusText(status), message)
	s.render(w, r, status, "error.html", p)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if isAPI(r.URL.Path) {
		writeEnvelope(w, http.StatusNotFound, nil, "Not found")
		return
	}
	s.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}

// flash sets a toast for the next rendered page.
func (s *Server) flash(w http.ResponseWriter, r *http.Request, t *toast) {
	if err := setFlash(store(w, r), t); err != nil {
		s.log.Warn("failed to set flash message", logger.ErrAttr(err))
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// signinURL is the sign-in page that returns to callback afterwards.
func signinURL(callback string) string {
	callback = safeReturn(callback, "")
	if callback == "" || callback == "/signin" || strings.HasPrefix(callback, "/signin?") {
		return "/signin"
	}
	return "/signin?callbackUrl=" + url.QueryEscape(callback)
}

// safeReturn accepts only same-origin absolute paths.
func safeReturn(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return raw
}

func isAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, models.NewEnvelope(data, message, status))
}
