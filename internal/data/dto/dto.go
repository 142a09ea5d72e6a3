package dto

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the payload of the admin session cookie. The session id
// travels as the registered "jti" claim.
type SessionClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// ItemEvent is pushed to storefront websocket subscribers after a mutation.
type ItemEvent struct {
	Event  string `json:"event"`
	Action string `json:"action"`
	ID     int64  `json:"id"`
}
