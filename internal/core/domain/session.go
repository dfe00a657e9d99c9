package domain

import "time"

// Claims are the identity facts carried by a session token.
type Claims struct {
	TokenID   string    `json:"jti"`
	Subject   string    `json:"sub"`
	UserID    string    `json:"uid"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

