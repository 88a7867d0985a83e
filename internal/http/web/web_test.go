package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/backendtest"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/confirm"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/gateway"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/resource"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/session"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/settings"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/storage/memory"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/clients/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	api    *backendtest.API
	ts     *httptest.Server
	client *http.Client
	gates  *confirm.Registry
}

func newFixture(t *testing.T, configure ...func(*Options)) *fixture {
	t.Helper()
	api := backendtest.New(t)
	client, err := backend.New(api.URL, 5*time.Second)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.New(log, client, session.DefaultOptions())
	store := settings.New(log, client, "kh", false)
	gw := gateway.New(log, client, sessions, store, memory.NewStorage(0))
	gates := confirm.NewRegistry()

	opts := Options{
		CookieSecret:    testSecret,
		SigninPerMinute: 1,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	srv, err := New(log, sessions, store, resource.New(log, gw), gates, opts)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &fixture{
		api: api,
		ts:  ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		gates: gates,
	}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.Get(f.ts.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (f *fixture) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.PostForm(f.ts.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (f *fixture) sendJSON(t *testing.T, method, path string, body any) (*http.Response, string) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, f.ts.URL+path, strings.NewReader(string(raw)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	resp, _ := f.post(t, "/signin", url.Values{"username": {"admin"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func (f *fixture) cookieNames(t *testing.T) []string {
	t.Helper()
	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)
	var names []string
	for _, c := range f.client.Jar.Cookies(u) {
		names = append(names, c.Name)
	}
	return names
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func findCookie(resp *http.Response, name string) (*http.Cookie, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestProtectedRouteRedirectsToSignin(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.get(t, "/categories?page=2")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/signin?callbackUrl="+url.QueryEscape("/categories?page=2"), resp.Header.Get("Location"))
}

func TestProtectedAPIAnswersUnauthorized(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/api/category/1")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, `"Unauthorized"`)
}

func TestSigninCreatesSessionAndFollowsCallback(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.post(t, "/signin", url.Values{
		"username":    {"admin"},
		"password":    {"secret"},
		"callbackUrl": {"/categories"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/categories", resp.Header.Get("Location"))

	refresh, ok := findCookie(resp, session.RefreshCookie)
	require.True(t, ok)
	assert.Equal(t, 7*24*60*60, refresh.MaxAge)
	assert.True(t, refresh.HttpOnly)

	flag, ok := findCookie(resp, session.FlagCookie)
	require.True(t, ok)
	assert.False(t, flag.HttpOnly)

	names := f.cookieNames(t)
	assert.Contains(t, names, session.AccessCookie)
	assert.Contains(t, names, session.RefreshCookie)
	assert.NotContains(t, names, session.RememberCookie)
}

func TestSigninRememberMe(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.post(t, "/signin", url.Values{
		"username":   {"admin"},
		"password":   {"secret"},
		"rememberMe": {"on"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	refresh, ok := findCookie(resp, session.RefreshCookie)
	require.True(t, ok)
	assert.Equal(t, 30*24*60*60, refresh.MaxAge)
	assert.Contains(t, f.cookieNames(t), session.RememberCookie)
}

func TestSigninRejectsForeignCallback(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.post(t, "/signin", url.Values{
		"username":    {"admin"},
		"password":    {"secret"},
		"callbackUrl": {"//evil.example.com/"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSigninInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	resp, body := f.post(t, "/signin", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password")
	assert.NotContains(t, f.cookieNames(t), session.AccessCookie)
}

func TestSigninValidationRunsBeforeBackend(t *testing.T) {
	f := newFixture(t)
	resp, body := f.post(t, "/signin", url.Values{"username": {""}, "password": {""}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "This field is required")
	assert.Zero(t, f.api.Calls("POST /auth/login"))
}

func TestSigninRateLimited(t *testing.T) {
	f := newFixture(t)
	f.api.SetSetting(models.IMSMaxLoginAttempts, 2)

	for i := 0; i < 2; i++ {
		resp, _ := f.post(t, "/signin", url.Values{"username": {"admin"}, "password": {"wrong"}})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, body := f.post(t, "/signin", url.Values{"username": {"admin"}, "password": {"secret"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, msgTooMany)
	assert.Equal(t, 2, f.api.Calls("POST /auth/login"))
}

func (f *fixture) postFrom(t *testing.T, forwardedFor string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+"/signin", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp
}

func TestSigninRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	f := newFixture(t)
	f.api.SetSetting(models.IMSMaxLoginAttempts, 2)

	limited := 0
	for i := 0; i < 10; i++ {
		resp := f.postFrom(t, "10.0.0."+strconv.Itoa(i), url.Values{"username": {"admin"}, "password": {"wrong"}})
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 8, limited)
	assert.Equal(t, 2, f.api.Calls("POST /auth/login"))
}

func TestSigninRateLimitBehindTrustedProxy(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.TrustedProxies = []string{"127.0.0.1", "::1"} })
	f.api.SetSetting(models.IMSMaxLoginAttempts, 1)

	resp := f.postFrom(t, "198.51.100.1", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = f.postFrom(t, "198.51.100.1", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// a different client behind the same proxy has its own bucket
	resp = f.postFrom(t, "198.51.100.2", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNewRejectsBadTrustedProxy(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(log, nil, nil, nil, confirm.NewRegistry(), Options{TrustedProxies: []string{"not-a-cidr"}})
	assert.Error(t, err)
}

func TestSaveSettingRejectsNonNumber(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, body := f.post(t, "/settings", url.Values{"label": {"IMS_DEFAULT_PAGE_SIZE"}, "value": {"abc"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Must be a number")
	assert.Contains(t, body, `value="abc"`)
	assert.Zero(t, f.api.Calls("PUT /setting/IMS_DEFAULT_PAGE_SIZE"))

	resp, _ = f.post(t, "/settings", url.Values{"label": {"IMS_DEFAULT_PAGE_SIZE"}, "value": {"15"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, 1, f.api.Calls("PUT /setting/IMS_DEFAULT_PAGE_SIZE"))
}

func TestSigninPageBouncesSignedInUser(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, _ := f.get(t, "/signin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSignoutClearsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, _ := f.post(t, "/signout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/signin", resp.Header.Get("Location"))

	names := f.cookieNames(t)
	assert.NotContains(t, names, session.AccessCookie)
	assert.NotContains(t, names, session.RefreshCookie)
	assert.NotContains(t, names, session.FlagCookie)
}

func TestHomeShowsCurrentUser(t *testing.T) {
	f := newFixture(t)
	f.api.SetSetting(models.IMSName, "Warehouse One")
	f.signIn(t)

	resp, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Warehouse One")
	assert.Contains(t, body, "ROLE_ADMIN")
	assert.Contains(t, body, "CATEGORY:WRITE")
}

func TestListScreenRendersRows(t *testing.T) {
	f := newFixture(t)
	f.api.Seed("category", map[string]any{"name": "Beverages", "description": "Drinks"})
	f.api.Seed("category", map[string]any{"name": "Snacks", "description": "Chips"})
	f.signIn(t)

	resp, body := f.get(t, "/categories")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Beverages")
	assert.Contains(t, body, "Snacks")
	assert.Contains(t, body, `/categories/1/delete`)

	// The backend sees a zero-based page and the configured page size.
	last := f.api.LastRequest("GET /category")
	require.NotNil(t, last)
	assert.Equal(t, "0", last.URL.Query().Get("page"))
	assert.Equal(t, "20", last.URL.Query().Get("size"))
}

func TestListScreenKhmerNumerals(t *testing.T) {
	f := newFixture(t)
	f.api.SetSetting(models.IMSDefaultLanguage, "kh")
	f.api.Seed("warehouse", map[string]any{"name": "Main", "location": "Phnom Penh"})
	f.signIn(t)

	resp, body := f.get(t, "/warehouse")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Showing ១ to ១ of ១ entries")
}

func TestUnknownScreenIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	resp, _ := f.get(t, "/nothing-here")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	f := newFixture(t)
	f.api.Seed("category", map[string]any{"name": "Beverages", "description": "Drinks"})

	f.api.SetAccessTTL(-time.Hour)
	f.signIn(t)
	f.api.SetAccessTTL(time.Hour)

	resp, body := f.get(t, "/categories")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Beverages")
	assert.Equal(t, 1, f.api.Calls("POST /auth/refresh-token"))
}

func TestFailedRefreshSendsBackToSignin(t *testing.T) {
	f := newFixture(t)

	f.api.SetAccessTTL(-time.Hour)
	f.signIn(t)
	f.api.SetFailRefresh(true)

	resp, _ := f.get(t, "/users")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/signin?callbackUrl=%2Fusers", resp.Header.Get("Location"))
	assert.NotContains(t, f.cookieNames(t), session.RefreshCookie)
}

var ticketRe = regexp.MustCompile(`action="/confirm/([0-9a-f-]{36})"`)

func openDelete(t *testing.T, f *fixture, path string) string {
	t.Helper()
	resp, body := f.post(t, path, url.Values{"return": {"/categories?query=bev"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := ticketRe.FindStringSubmatch(body)
	require.Len(t, m, 2, body)
	return m[1]
}

func TestDeleteRunsOnlyAfterConfirmation(t *testing.T) {
	f := newFixture(t)
	id := f.api.Seed("category", map[string]any{"name": "Beverages", "description": "Drinks"})
	f.signIn(t)

	ticket := openDelete(t, f, "/categories/1/delete")
	_, stillThere := f.api.Record("category", id)
	require.True(t, stillThere)
	assert.Zero(t, f.api.Calls("DELETE /category/1"))

	resp, _ := f.post(t, "/confirm/"+ticket, url.Values{"return": {"/categories?query=bev"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/categories?query=bev", resp.Header.Get("Location"))

	_, stillThere = f.api.Record("category", id)
	assert.False(t, stillThere)

	// The toast survives the redirect once.
	_, body := f.get(t, "/categories")
	assert.Contains(t, body, "Deleted successfully")
	_, body = f.get(t, "/categories")
	assert.NotContains(t, body, "Deleted successfully")
}

func TestDeleteCancelled(t *testing.T) {
	f := newFixture(t)
	id := f.api.Seed("category", map[string]any{"name": "Beverages", "description": "Drinks"})
	f.signIn(t)

	ticket := openDelete(t, f, "/categories/1/delete")
	resp, _ := f.post(t, "/confirm/"+ticket+"/cancel", url.Values{"return": {"/categories"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, stillThere := f.api.Record("category", id)
	assert.True(t, stillThere)
	assert.Equal(t, confirm.Closed, f.gates.Gate("1").State())

	// A cancelled ticket cannot be accepted afterwards.
	f.post(t, "/confirm/"+ticket, url.Values{"return": {"/categories"}})
	_, stillThere = f.api.Record("category", id)
	assert.True(t, stillThere)
}

func TestDeleteRejectedByBackendShowsMessage(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	ticket := openDelete(t, f, "/categories/42/delete")
	resp, _ := f.post(t, "/confirm/"+ticket, url.Values{"return": {"/categories"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := f.get(t, "/categories")
	assert.Contains(t, body, "Record not found")
}

func TestFormCreateAndValidate(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, body := f.post(t, "/warehouse/new", url.Values{"name": {"Main"}, "location": {""}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "This field is required")
	assert.Zero(t, f.api.Calls("POST /warehouse"))

	resp, _ = f.post(t, "/warehouse/new", url.Values{"name": {"Main"}, "location": {"Phnom Penh"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/warehouse", resp.Header.Get("Location"))

	rec, ok := f.api.Record("warehouse", 1)
	require.True(t, ok)
	assert.Equal(t, "Phnom Penh", rec["location"])
}

func TestEditFormPrefills(t *testing.T) {
	f := newFixture(t)
	f.api.Seed("currency", map[string]any{"code": "KHR", "name": "Riel", "rate": 4100, "version": 3})
	f.signIn(t)

	resp, body := f.get(t, "/currency/edit/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="KHR"`)
	assert.Contains(t, body, `value="4100"`)
	assert.Contains(t, body, `value="3"`)
}

func TestAPIResourceCreateValidatesPayload(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, body := f.sendJSON(t, http.MethodPost, "/api/category", map[string]any{"name": "Tools"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"description":"This field is required"`)
	assert.Zero(t, f.api.Calls("POST /category"))

	resp, body = f.sendJSON(t, http.MethodPost, "/api/category", map[string]any{"name": "Tools", "description": "Hand tools"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env models.Envelope[models.Category]
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	assert.Equal(t, "Tools", env.Data.Name)
	assert.EqualValues(t, 1, env.Data.ID)
}

func TestAPIUserCreateNeedsPassword(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, body := f.sendJSON(t, http.MethodPost, "/api/user", map[string]any{"username": "jane", "name": "Jane", "roleId": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"password":"This field is required"`)
}

func TestAPIResourceFindAndUpdate(t *testing.T) {
	f := newFixture(t)
	f.api.Seed("warehouse", map[string]any{"name": "Main", "location": "Phnom Penh"})
	f.signIn(t)

	resp, body := f.get(t, "/api/warehouse/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Phnom Penh")

	resp, _ = f.sendJSON(t, http.MethodPut, "/api/warehouse/1", map[string]any{"name": "Main", "location": "Siem Reap"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The write invalidated the cached read.
	_, body = f.get(t, "/api/warehouse/1")
	assert.Contains(t, body, "Siem Reap")

	resp, _ = f.get(t, "/api/warehouse/9")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPISettingsRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	resp, body := f.get(t, "/api/setting")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"IMS_MAINTENANCE_MODE":false`)

	resp, _ = f.sendJSON(t, http.MethodPut, "/api/setting", map[string]any{"label": "IMS_NAME", "value": "Depot"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = f.get(t, "/api/setting")
	assert.Contains(t, body, `"IMS_NAME":"Depot"`)

	resp, _ = f.sendJSON(t, http.MethodPut, "/api/setting", map[string]any{"label": "NOPE", "value": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMaintenanceModeRedirects(t *testing.T) {
	f := newFixture(t)
	f.api.SetSetting(models.IMSMaintenanceMode, true)

	resp, _ := f.get(t, "/categories")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/maintenance", resp.Header.Get("Location"))

	resp, _ = f.get(t, "/maintenance")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMaintenanceCanBeSwitchedOffFromSettings(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.api.SetSetting(models.IMSMaintenanceMode, true)

	resp, _ := f.post(t, "/settings", url.Values{"label": {"IMS_MAINTENANCE_MODE"}, "value": {"true"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = f.get(t, "/")
	assert.Equal(t, "/maintenance", resp.Header.Get("Location"))

	resp, _ = f.post(t, "/settings", url.Values{"label": {"IMS_MAINTENANCE_MODE"}, "value": {"false"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = f.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSafeReturn(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"/users?page=2", "/users?page=2"},
		{"", "/"},
		{"users", "/"},
		{"//evil.example.com", "/"},
		{"/\\evil.example.com", "/"},
		{"https://evil.example.com/", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeReturn(tt.raw, "/"), tt.raw)
	}
}

func TestSigninURL(t *testing.T) {
	assert.Equal(t, "/signin", signinURL(""))
	assert.Equal(t, "/signin", signinURL("/signin?callbackUrl=%2F"))
	assert.Equal(t, "/signin?callbackUrl=%2Froles%3Fpage%3D2", signinURL("/roles?page=2"))
}

func TestDecodeForm(t *testing.T) {
	input, fields, errs := decodeForm(resource.Roles, url.Values{
		"name":          {" Manager "},
		"permissionIds": {"1, 2,3"},
		"version":       {"4"},
	})
	require.Empty(t, errs)

	role, ok := input.(*models.RoleInput)
	require.True(t, ok)
	assert.Equal(t, "Manager", role.Name)
	assert.Equal(t, []int64{1, 2, 3}, role.PermissionIDs)
	assert.Equal(t, 4, role.Version)
	assert.Equal(t, "Manager", fields[0].Value)

	_, _, errs = decodeForm(resource.Roles, url.Values{"name": {"x"}, "permissionIds": {"1,a"}})
	assert.Contains(t, errs, "permissionIds")

	_, _, errs = decodeForm(resource.Currencies, url.Values{"rate": {"lots"}})
	assert.Contains(t, errs, "rate")
}

func TestValidateInput(t *testing.T) {
	err := ValidateInput(&models.UserInput{Username: "jane", Name: "Jane", RoleID: 1}, true)
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "This field is required", fields["password"])

	assert.NoError(t, ValidateInput(&models.UserInput{Username: "jane", Name: "Jane", RoleID: 1}, false))

	err = ValidateInput(&models.CategoryInput{Name: "x; DROP TABLE users", Description: "d"}, true)
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "Contains restricted phrases", fields["name"])

	err = ValidateInput(&models.CurrencyInput{Code: "USD", Name: "Dollar", Rate: 0}, true)
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "Must be at least 0.1", fields["rate"])
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1", 2))
	assert.True(t, l.Allow("10.0.0.1", 2))
	assert.False(t, l.Allow("10.0.0.1", 2))
	assert.True(t, l.Allow("10.0.0.2", 2))

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("10.0.0.1", 2))

	now = now.Add(visitorIdle + time.Second)
	l.cleanup()
	assert.Zero(t, l.Len())
}
