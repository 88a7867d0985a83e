// Package backendtest runs an in-process stand-in for the inventory API.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	imsjwt "github.com/FurmanovVitaliy/ims-dashboard/pkg/jwt"
	"github.com/golang-jwt/jwt/v5"
)

const signingKey = "backendtest-signing-key"

// API is a fake inventory backend.
type API struct {
	*httptest.Server

	mu          sync.Mutex
	accessTTL   time.Duration
	failRefresh bool
	keepRefresh bool

	users    map[string]string
	settings map[models.SettingLabel]any
	records  map[string]map[int64]map[string]any
	revoked  map[string]bool
	refresh  map[string]bool
	calls    map[string]int
	requests []*http.Request
	holds    map[string]*hold
	nextID   int64
	seq      int
}

type hold struct {
	arrived chan struct{}
	release chan struct{}
	seen    sync.Once
	done    sync.Once
}

func New(t testing.TB) *API {
	t.Helper()
	a := &API{
		accessTTL: time.Hour,
		users:     map[string]string{"admin": "secret"},
		settings:  make(map[models.SettingLabel]any),
		records:   make(map[string]map[int64]map[string]any),
		revoked:   make(map[string]bool),
		refresh:   make(map[string]bool),
		calls:     make(map[string]int),
		holds:     make(map[string]*hold),
		nextID:    1,
	}
	a.Server = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.Server.Close)
	return a
}

// SetAccessTTL sets the lifetime of minted access tokens. Negative values
// mint tokens that are already expired.
func (a *API) SetAccessTTL(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accessTTL = d
}

// SetFailRefresh makes /auth/refresh-token answer 401.
func (a *API) SetFailRefresh(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failRefresh = fail
}

// SetKeepRefreshToken makes refresh answer without a new refresh token.
func (a *API) SetKeepRefreshToken(keep bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keepRefresh = keep
}

// Hold delays responses to route, e.g. "GET /setting". The response is
// computed when the request arrives and delivered once release is called.
// arrived is closed when the first held request came in.
func (a *API) Hold(t testing.TB, route string) (arrived <-chan struct{}, release func()) {
	t.Helper()
	h := &hold{arrived: make(chan struct{}), release: make(chan struct{})}
	a.mu.Lock()
	a.holds[route] = h
	a.mu.Unlock()

	release = func() { h.done.Do(func() { close(h.release) }) }
	t.Cleanup(release)
	return h.arrived, release
}

// Calls returns how many times method+path was hit, e.g. "GET /category".
func (a *API) Calls(route string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[route]
}

// LastRequest returns the most recent request for route.
func (a *API) LastRequest(route string) *http.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.requests) - 1; i >= 0; i-- {
		r := a.requests[i]
		if r.Method+" "+r.URL.Path == route {
			return r
		}
	}
	return nil
}

func (a *API) SetSetting(label models.SettingLabel, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings[label] = value
}

// Seed stores a record under resource and returns its id.
func (a *API) Seed(resource string, record map[string]any) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.insert(resource, record)
}

func (a *API) Record(resource string, id int64) (map[string]any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.records[resource][id]
	return r, ok
}

// Revoke makes the backend reject an access token that is not yet expired.
func (a *API) Revoke(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked[token] = true
}

// AccessToken mints an access token for the admin user with the given expiry.
func (a *API) AccessToken(exp time.Time) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mint(exp)
}

// RefreshToken mints a refresh token the backend will accept.
func (a *API) RefreshToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mintRefresh()
}

func (a *API) mint(exp time.Time) string {
	a.seq++
	claims := &imsjwt.Claims{
		UserID:   1,
		RoleID:   1,
		Scope:    "user:read user:write category:read category:write",
		Name:     "Admin User",
		Username: "admin",
		RoleName: "ROLE_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "Admin User",
			Issuer:    "EXPERT",
			ID:        fmt.Sprintf("access-%d", a.seq),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return s
}

func (a *API) mintRefresh() string {
	a.seq++
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ID:        fmt.Sprintf("refresh-%d", a.seq),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	a.refresh[s] = true
	return s
}

func (a *API) insert(resource string, record map[string]any) int64 {
	id := a.nextID
	a.nextID++
	cp := make(map[string]any, len(record)+1)
	for k, v := range record {
		cp[k] = v
	}
	cp["id"] = id
	if a.records[resource] == nil {
		a.records[resource] = make(map[int64]map[string]any)
	}
	a.records[resource][id] = cp
	return id
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func envelope(status int, message string, data any, paging *models.Paging) map[string]any {
	out := map[string]any{"status": status, "message": message, "data": data}
	if paging != nil {
		out["paging"] = paging
	}
	return out
}

func (a *API) serve(w http.ResponseWriter, r *http.Request) {
	rec := httptest.NewRecorder()

	a.mu.Lock()
	a.handle(rec, r)
	h := a.holds[r.Method+" "+r.URL.Path]
	a.mu.Unlock()

	if h != nil {
		h.seen.Do(func() { close(h.arrived) })
		<-h.release
	}

	for k, vs := range rec.Header() {
		w.Header()[k] = vs
	}
	w.WriteHeader(rec.Code)
	_, _ = w.Write(rec.Body.Bytes())
}

func (a *API) handle(w http.ResponseWriter, r *http.Request) {
	a.calls[r.Method+" "+r.URL.Path]++
	a.requests = append(a.requests, r.Clone(r.Context()))

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		a.login(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/refresh-token":
		a.refreshToken(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/setting":
		a.listSettings(w)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/setting/"):
		a.updateSetting(w, r)
	default:
		if !a.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, envelope(401, "Unauthorized", nil, nil))
			return
		}
		a.crud(w, r)
	}
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope(400, "bad request", nil, nil))
		return
	}
	if pass, ok := a.users[body.Username]; !ok || pass != body.Password {
		writeJSON(w, http.StatusUnauthorized, envelope(401, "Invalid username or password", nil, nil))
		return
	}
	pair := models.TokenPair{Token: a.mint(time.Now().Add(a.accessTTL)), RefreshToken: a.mintRefresh()}
	writeJSON(w, http.StatusOK, envelope(200, "success", pair, nil))
}

func (a *API) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	if a.failRefresh || !a.refresh[body.RefreshToken] || bearer != body.RefreshToken {
		writeJSON(w, http.StatusUnauthorized, envelope(401, "Refresh token expired", nil, nil))
		return
	}

	pair := models.TokenPair{Token: a.mint(time.Now().Add(a.accessTTL))}
	if !a.keepRefresh {
		delete(a.refresh, body.RefreshToken)
		pair.RefreshToken = a.mintRefresh()
	}
	writeJSON(w, http.StatusOK, envelope(200, "success", pair, nil))
}

func (a *API) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" || a.revoked[token] {
		return false
	}
	claims, err := imsjwt.Decode(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.After(time.Now())
}

func (a *API) listSettings(w http.ResponseWriter) {
	labels := make([]string, 0, len(a.settings))
	for l := range a.settings {
		labels = append(labels, string(l))
	}
	sort.Strings(labels)

	data := make([]models.Setting, 0, len(labels))
	for i, l := range labels {
		data = append(data, models.Setting{ID: int64(i + 1), Label: models.SettingLabel(l), Value: a.settings[models.SettingLabel(l)]})
	}
	writeJSON(w, http.StatusOK, envelope(200, "success", data, nil))
}

func (a *API) updateSetting(w http.ResponseWriter, r *http.Request) {
	label := models.SettingLabel(strings.TrimPrefix(r.URL.Path, "/setting/"))
	var body struct {
		Value any                 `json:"value"`
		Label models.SettingLabel `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Label != label {
		writeJSON(w, http.StatusBadRequest, envelope(400, "invalid setting", nil, nil))
		return
	}
	a.settings[label] = body.Value
	writeJSON(w, http.StatusOK, envelope(200, "updated", models.Setting{Label: label, Value: body.Value, Version: 1}, nil))
}

func (a *API) crud(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	resource := parts[0]

	var id int64
	if len(parts) > 1 {
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeJSON(w, http.StatusNotFound, envelope(404, "not found", nil, nil))
			return
		}
		id = n
	}

	switch {
	case r.Method == http.MethodGet && id == 0:
		a.list(w, r, resource)
	case r.Method == http.MethodGet:
		rec, ok := a.records[resource][id]
		if !ok {
			writeJSON(w, http.StatusNotFound, envelope(404, "Record not found", nil, nil))
			return
		}
		writeJSON(w, http.StatusOK, envelope(200, "success", rec, nil))
	case r.Method == http.MethodPost && id == 0:
		var rec map[string]any
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeJSON(w, http.StatusBadRequest, envelope(400, "bad request", nil, nil))
			return
		}
		newID := a.insert(resource, rec)
		writeJSON(w, http.StatusOK, envelope(200, "created", a.records[resource][newID], nil))
	case r.Method == http.MethodPut:
		rec, ok := a.records[resource][id]
		if !ok {
			writeJSON(w, http.StatusNotFound, envelope(404, "Record not found", nil, nil))
			return
		}
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, envelope(400, "bad request", nil, nil))
			return
		}
		for k, v := range patch {
			rec[k] = v
		}
		writeJSON(w, http.StatusOK, envelope(200, "updated", rec, nil))
	case r.Method == http.MethodDelete:
		if _, ok := a.records[resource][id]; !ok {
			writeJSON(w, http.StatusNotFound, envelope(404, "Record not found", nil, nil))
			return
		}
		delete(a.records[resource], id)
		writeJSON(w, http.StatusOK, envelope(200, "deleted", nil, nil))
	default:
		writeJSON(w, http.StatusMethodNotAllowed, envelope(405, "method not allowed", nil, nil))
	}
}

func (a *API) list(w http.ResponseWriter, r *http.Request, resource string) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if size <= 0 {
		size = 10
	}
	filter := strings.ToLower(q.Get("query"))

	ids := make([]int64, 0, len(a.records[resource]))
	for id, rec := range a.records[resource] {
		if filter != "" && !strings.Contains(strings.ToLower(fmt.Sprint(rec["name"])), filter) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if q.Get("sort") == "id,desc" {
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	}

	totals := len(ids)
	start := page * size
	end := start + size
	if start > totals {
		start = totals
	}
	if end > totals {
		end = totals
	}

	data := make([]map[string]any, 0, end-start)
	for _, id := range ids[start:end] {
		data = append(data, a.records[resource][id])
	}

	paging := models.Paging{Page: page, Size: size, Totals: totals, TotalPage: (totals + size - 1) / size}
	writeJSON(w, http.StatusOK, envelope(200, "success", data, &paging))
}
