package common

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the custom claims included in the JWT access token.
// Tokens are issued by the account service; this service only verifies them.
type Claims struct {
	UserID   string `json:"uid"`             // Custom claim for User ID.
	Username string `json:"usr,omitempty"`   // Custom claim for Username.
	Email    string `json:"eml"`             // Custom claim for Email.
	Role     string `json:"rol"`             // Custom claim for User Role.
	Scope    string `json:"scope,omitempty"` // Optional scope information.
	jwt.RegisteredClaims
}
