// Package cookies holds the cookie stores the session layer persists into.
package cookies

import (
	"context"
	"net/http"
	"sync"
)

// Store is a named cookie jar scoped to one browser.
type Store interface {
	Get(name string) (string, bool)
	Set(c *http.Cookie) error
	Delete(name string) error
}

type ctxKey struct{}

func WithStore(ctx context.Context, s Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Store, bool) {
	s, ok := ctx.Value(ctxKey{}).(Store)
	return s, ok
}

// expired builds the cookie that makes a browser forget name.
func expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// HTTP reads cookies from a request and writes Set-Cookie headers.
// Writes are visible to later reads of the same request.
type HTTP struct {
	r *http.Request
	w http.ResponseWriter

	mu      sync.Mutex
	overlay map[string]*string
}

func NewHTTP(w http.ResponseWriter, r *http.Request) *HTTP {
	return &HTTP{r: r, w: w, overlay: make(map[string]*string)}
}

func (h *HTTP) Get(name string) (string, bool) {
	h.mu.Lock()
	v, touched := h.overlay[name]
	h.mu.Unlock()
	if touched {
		if v == nil {
			return "", false
		}
		return *v, true
	}

	c, err := h.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (h *HTTP) Set(c *http.Cookie) error {
	if err := c.Valid(); err != nil {
		return err
	}
	http.SetCookie(h.w, c)

	h.mu.Lock()
	defer h.mu.Unlock()
	if c.MaxAge < 0 {
		h.overlay[c.Name] = nil
		return nil
	}
	v := c.Value
	h.overlay[c.Name] = &v
	return nil
}

func (h *HTTP) Delete(name string) error {
	return h.Set(expired(name))
}

// Memory is an in-process jar for tests and tools.
type Memory struct {
	mu      sync.Mutex
	cookies map[string]*http.Cookie
}

func NewMemory() *Memory {
	return &Memory{cookies: make(map[string]*http.Cookie)}
}

func (m *Memory) Get(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cookies[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}

func (m *Memory) Set(c *http.Cookie) error {
	if err := c.Valid(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.MaxAge < 0 {
		delete(m.cookies, c.Name)
		return nil
	}
	cp := *c
	m.cookies[c.Name] = &cp
	return nil
}

func (m *Memory) Delete(name string) error {
	return m.Set(expired(name))
}

// Cookie returns a copy of the stored cookie with its attributes.
func (m *Memory) Cookie(name string) (http.Cookie, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cookies[name]
	if !ok {
		return http.Cookie{}, false
	}
	return *c, true
}

// Names lists the stored cookie names.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.cookies))
	for n := range m.cookies {
		names = append(names, n)
	}
	return names
}
