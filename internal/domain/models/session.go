package models

import "time"

// TokenPair is the data block of a login or refresh response.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type LoginRequest struct {
	Username   string `json:"username" validate:"required,max=100,no_sql_phrases"`
	Password   string `json:"password" validate:"required,max=200"`
	RememberMe bool   `json:"-"`
}

// UserAuth is the identity carried by the access token.
type UserAuth struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Username    string   `json:"username"`
	Avatar      string   `json:"avatar"`
	RoleName    string   `json:"roleName"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the user carries the given permission.
func (u UserAuth) HasPermission(p string) bool {
	for _, have := range u.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// Session is the browser's session as read back from its cookies.
// A zero RefreshTokenExpiry means the refresh token is opaque and only
// bounded by its cookie lifetime.
type Session struct {
	AccessToken        string
	RefreshToken       string
	AccessTokenExpiry  time.Time
	RefreshTokenExpiry time.Time
	User               UserAuth
}

// Valid reports whether the session can still be used or recovered by refresh.
func (s Session) Valid(now time.Time) bool {
	if s.RefreshToken == "" {
		return false
	}
	return s.RefreshTokenExpiry.IsZero() || s.RefreshTokenExpiry.After(now)
}
