package cookies

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestHTTPOverlay(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session_token", Value: "old"})
	w := httptest.NewRecorder()
	s := NewHTTP(w, r)

	v, ok := s.Get("session_token")
	require.True(t, ok)
	assert.Equal(t, "old", v)

	require.NoError(t, s.Set(&http.Cookie{Name: "session_token", Value: "new", Path: "/", MaxAge: 60}))
	v, ok = s.Get("session_token")
	require.True(t, ok)
	assert.Equal(t, "new", v)

	require.NoError(t, s.Delete("session_token"))
	_, ok = s.Get("session_token")
	assert.False(t, ok)

	set := w.Result().Cookies()
	require.Len(t, set, 2)
	assert.Equal(t, "new", set[0].Value)
	assert.Equal(t, -1, set[1].MaxAge)
}

func TestMemoryDeleteIsIdempotent(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set(&http.Cookie{Name: "a", Value: "1", MaxAge: 10}))

	require.NoError(t, m.Delete("a"))
	require.NoError(t, m.Delete("a"))

	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Empty(t, m.Names())
}

func TestMemoryRejectsInvalidCookie(t *testing.T) {
	require.Error(t, NewMemory().Set(&http.Cookie{Name: "bad name", Value: "x"}))
}

func TestSealedRoundTrip(t *testing.T) {
	m := NewMemory()
	s, err := NewSealed(m, secret)
	require.NoError(t, err)

	require.NoError(t, s.Set(&http.Cookie{Name: "refresh_token", Value: "header.payload.sig", MaxAge: 60}))

	raw, ok := m.Get("refresh_token")
	require.True(t, ok)
	assert.False(t, strings.Contains(raw, "payload"))

	v, ok := s.Get("refresh_token")
	require.True(t, ok)
	assert.Equal(t, "header.payload.sig", v)
}

func TestSealedRejectsSwappedValue(t *testing.T) {
	m := NewMemory()
	s, err := NewSealed(m, secret)
	require.NoError(t, err)

	require.NoError(t, s.Set(&http.Cookie{Name: "session_token", Value: "access", MaxAge: 60}))
	raw, _ := m.Get("session_token")
	require.NoError(t, m.Set(&http.Cookie{Name: "refresh_token", Value: raw, MaxAge: 60}))

	_, ok := s.Get("refresh_token")
	assert.False(t, ok)

	require.NoError(t, m.Set(&http.Cookie{Name: "refresh_token", Value: "plain", MaxAge: 60}))
	_, ok = s.Get("refresh_token")
	assert.False(t, ok)
}

func TestSealedReadsValuesFromPreviousSecret(t *testing.T) {
	m := NewMemory()
	const next = "another-secret-that-is-32-bytes-long!!"

	old, err := NewSealed(m, secret)
	require.NoError(t, err)
	require.NoError(t, old.Set(&http.Cookie{Name: "refresh_token", Value: "before-rotation", MaxAge: 60}))

	rotated, err := NewSealed(m, next, secret)
	require.NoError(t, err)
	v, ok := rotated.Get("refresh_token")
	require.True(t, ok)
	assert.Equal(t, "before-rotation", v)

	// new writes use the first secret only
	require.NoError(t, rotated.Set(&http.Cookie{Name: "refresh_token", Value: "after-rotation", MaxAge: 60}))
	fresh, err := NewSealed(m, next)
	require.NoError(t, err)
	v, ok = fresh.Get("refresh_token")
	require.True(t, ok)
	assert.Equal(t, "after-rotation", v)

	_, ok = old.Get("refresh_token")
	assert.False(t, ok)
}

func TestNewSealedShortSecret(t *testing.T) {
	_, err := NewSealed(NewMemory(), "short")
	assert.ErrorIs(t, err, ErrSecretTooShort)

	_, err = NewSealed(NewMemory(), secret, "short")
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	m := NewMemory()
	got, ok := FromContext(WithStore(context.Background(), m))
	require.True(t, ok)
	assert.Same(t, m, got)
}
