package auth

import "errors"

var (
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrKeyRevoked         = errors.New("auth: api key revoked")
	ErrUnauthorized       = errors.New("auth: unauthorized")
)
