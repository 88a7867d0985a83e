package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/cookies"
)

const (
	flashCookie = "flash"
	flashMaxAge = 30
)

const (
	toastSuccess = "success"
	toastError   = "error"
)

// Messages shown when the cause is not actionable by the user.
const (
	msgUnexpected   = "An unexpected error occurred"
	msgNetwork      = "Network error. Please try again."
	msgStaleConfirm = "This confirmation is no longer valid"
	msgTooMany      = "Too many sign-in attempts. Please try again later."
)

// toast is a one-shot notification. Across a redirect it travels in a
// short-lived cookie.
type toast struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorToast(msg string) *toast {
	if msg == "" {
		msg = msgUnexpected
	}
	return &toast{Kind: toastError, Message: msg}
}

func setFlash(store cookies.Store, t *toast) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return store.Set(&http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and removes the pending toast, if any.
func popFlash(store cookies.Store) *toast {
	raw, ok := store.Get(flashCookie)
	if !ok {
		return nil
	}
	_ = store.Delete(flashCookie)

	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var t toast
	if err := json.Unmarshal(b, &t); err != nil || t.Message == "" {
		return nil
	}
	return &t
}
