package jwt

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the access token minted by the inventory API.
type Claims struct {
	UserID   int64  `json:"id"`
	RoleID   int64  `json:"roleId"`
	Scope    string `json:"scope"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	RoleName string `json:"roleName"`
	jwt.RegisteredClaims
}

// Permissions splits the space separated scope claim into upper-cased names.
func (c *Claims) Permissions() []string {
	fields := strings.Fields(c.Scope)
	perms := make([]string, 0, len(fields))
	for _, f := range fields {
		perms = append(perms, strings.ToUpper(strings.TrimSpace(f)))
	}
	return perms
}
