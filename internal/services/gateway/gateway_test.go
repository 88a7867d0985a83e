package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/backendtest"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/cookies"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/session"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/services/settings"
	"github.com/FurmanovVitaliy/ims-dashboard/internal/storage/memory"
	"github.com/FurmanovVitaliy/ims-dashboard/pkg/clients/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	api      *backendtest.API
	gw       *Gateway
	sessions *session.Manager
	cache    *memory.Storage
	jar      *cookies.Memory
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := backendtest.New(t)
	client, err := backend.New(api.URL, 5*time.Second)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.New(log, client, session.DefaultOptions())
	store := settings.New(log, client, "kh", false)
	cache := memory.NewStorage(0)
	jar := cookies.NewMemory()

	return &fixture{
		api:      api,
		gw:       New(log, client, sessions, store, cache),
		sessions: sessions,
		cache:    cache,
		jar:      jar,
		ctx:      cookies.WithStore(context.Background(), jar),
	}
}

func (f *fixture) signIn(t *testing.T, accessExp time.Time) string {
	t.Helper()
	token := f.api.AccessToken(accessExp)
	require.NoError(t, f.sessions.CreateSession(f.jar, models.TokenPair{Token: token, RefreshToken: f.api.RefreshToken()}, false))
	return token
}

func TestGetInjectsHeadersAndPageSize(t *testing.T) {
	f := newFixture(t)
	f.api.SetSetting(models.IMSDefaultLanguage, "km")
	f.api.SetSetting(models.IMSDefaultPageSize, 15)
	token := f.signIn(t, time.Now().Add(time.Hour))
	f.api.Seed("category", map[string]any{"name": "Tools"})

	env, err := Get[[]models.Category](f.ctx, f.gw, "/category", url.Values{"page": {"0"}})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, 15, env.Paging.Size)

	req := f.api.LastRequest("GET /category")
	require.NotNil(t, req)
	assert.Equal(t, "Bearer "+token, req.Header.Get("Authorization"))
	assert.Equal(t, "km", req.Header.Get("Accept-Language"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "15", req.URL.Query().Get("size"))
}

func TestGetKeepsExplicitSize(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))

	_, err := Get[[]models.Category](f.ctx, f.gw, "/category", url.Values{"size": {"3"}})
	require.NoError(t, err)
	assert.Equal(t, "3", f.api.LastRequest("GET /category").URL.Query().Get("size"))
}

func TestExpiredTokenRefreshesAndRetriesOnce(t *testing.T) {
	f := newFixture(t)
	expired := f.signIn(t, time.Now().Add(-time.Hour))
	f.api.Seed("warehouse", map[string]any{"name": "Main", "location": "PP"})

	env, err := Get[[]models.Warehouse](f.ctx, f.gw, "/warehouse", nil)
	require.NoError(t, err)
	assert.True(t, env.OK())
	require.Len(t, env.Data, 1)

	assert.Equal(t, 1, f.api.Calls("POST /auth/refresh-token"))
	assert.Equal(t, 2, f.api.Calls("GET /warehouse"))

	fresh, ok := f.jar.Get(session.AccessCookie)
	require.True(t, ok)
	assert.NotEqual(t, expired, fresh)
	assert.Equal(t, "Bearer "+fresh, f.api.LastRequest("GET /warehouse").Header.Get("Authorization"))
}

func TestUnexpiredTokenRejectedIsReturnedAsIs(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, time.Now().Add(time.Hour))
	f.api.Revoke(token)

	env, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil)
	require.NoError(t, err)
	assert.Equal(t, 401, env.Status)
	assert.False(t, env.OK())
	assert.Zero(t, f.api.Calls("POST /auth/refresh-token"))
	assert.Equal(t, 1, f.api.Calls("GET /category"))
}

func TestFailedRefreshReportsSessionExpired(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(-time.Hour))
	f.api.SetFailRefresh(true)

	_, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, f.api.Calls("GET /category"))
	assert.Empty(t, f.jar.Names())
}

func TestTransportFailure(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))
	f.api.Close()

	_, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil)
	require.ErrorIs(t, err, ErrTransport)
}

func TestBackendFailureIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))

	env, err := Get[models.Category](f.ctx, f.gw, "/category/999", nil)
	require.NoError(t, err)
	assert.Equal(t, 404, env.Status)
	assert.Equal(t, "Record not found", env.Message)
}

func TestTaggedReadsAreCachedUntilMutation(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))
	f.api.Seed("category", map[string]any{"name": "Tools", "description": "Hand tools"})

	for i := 0; i < 3; i++ {
		env, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil, "category")
		require.NoError(t, err)
		require.Len(t, env.Data, 1)
	}
	assert.Equal(t, 1, f.api.Calls("GET /category"))
	assert.Equal(t, 1, f.cache.Len())

	_, err := Post[models.Category](f.ctx, f.gw, "/category", models.CategoryInput{Name: "Paint", Description: "Wall paint"}, "category")
	require.NoError(t, err)
	assert.Zero(t, f.cache.Len())

	env, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil, "category")
	require.NoError(t, err)
	assert.Len(t, env.Data, 2)
	assert.Equal(t, 2, f.api.Calls("GET /category"))
}

func TestReadRacingMutationIsNotCached(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))
	id := f.api.Seed("category", map[string]any{"name": "old", "description": "Hand tools"})

	arrived, release := f.api.Hold(t, "GET /category")
	read := make(chan models.Envelope[[]models.Category], 1)
	go func() {
		env, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil, "category")
		assert.NoError(t, err)
		read <- env
	}()
	<-arrived

	_, err := Put[models.Category](f.ctx, f.gw, "/category/"+strconv.FormatInt(id, 10),
		models.CategoryInput{Name: "new", Description: "Hand tools"}, "category")
	require.NoError(t, err)
	release()

	stale := <-read
	require.Len(t, stale.Data, 1)
	assert.Equal(t, "old", stale.Data[0].Name)
	assert.Zero(t, f.cache.Len())

	env, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil, "category")
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "new", env.Data[0].Name)
	assert.Equal(t, 2, f.api.Calls("GET /category"))
}

func TestUntaggedReadsAreNotCached(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))

	for i := 0; i < 2; i++ {
		_, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.api.Calls("GET /category"))
	assert.Zero(t, f.cache.Len())
}

func TestFailedMutationKeepsCache(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))

	_, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil, "category")
	require.NoError(t, err)

	env, err := Delete[any](f.ctx, f.gw, "/category/999", "category")
	require.NoError(t, err)
	assert.Equal(t, 404, env.Status)
	assert.Equal(t, 1, f.cache.Len())
}

func TestRevalidate(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))

	_, err := Get[[]models.Category](f.ctx, f.gw, "/category", nil, "category")
	require.NoError(t, err)
	require.NoError(t, f.gw.Revalidate(f.ctx, "category"))
	assert.Zero(t, f.cache.Len())
}

func TestPutAndDelete(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, time.Now().Add(time.Hour))
	id := f.api.Seed("currency", map[string]any{"code": "USD", "name": "Dollar", "rate": 1})

	env, err := Put[models.Currency](f.ctx, f.gw, "/currency/"+itoa(id), models.CurrencyInput{Code: "USD", Name: "US Dollar", Rate: 1}, "currency")
	require.NoError(t, err)
	assert.Equal(t, "US Dollar", env.Data.Name)

	del, err := Delete[any](f.ctx, f.gw, "/currency/"+itoa(id), "currency")
	require.NoError(t, err)
	assert.True(t, del.OK())
	_, ok := f.api.Record("currency", id)
	assert.False(t, ok)

	assert.Equal(t, http.MethodDelete, f.api.LastRequest("DELETE /currency/"+itoa(id)).Method)
}

func TestNoCookieStoreSendsAnonymousRequest(t *testing.T) {
	f := newFixture(t)

	env, err := Get[[]models.Category](context.Background(), f.gw, "/category", nil)
	require.NoError(t, err)
	assert.Equal(t, 401, env.Status)
	assert.Empty(t, f.api.LastRequest("GET /category").Header.Get("Authorization"))
	assert.Zero(t, f.api.Calls("POST /auth/refresh-token"))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
