package auth

import (
	"crypto/ed25519"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes a bearer token minted from a password login from one
// minted from an API key exchange.
type Kind string

const (
	KindPassword Kind = "password"
	KindAPIKey   Kind = "apiKey"
)

// Claims is the bearer token payload: {sub, iat, exp, kind, jti}.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// Signer mints and verifies Ed25519-signed bearer tokens. Only EdDSA is
// ever accepted at verification time, regardless of what algorithm header
// a presented token claims.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner builds a Signer from the process-wide Ed25519 key pair loaded
// once at startup.
func NewSigner(priv ed25519.PrivateKey, pub ed25519.PublicKey) *Signer {
	return &Signer{priv: priv, pub: pub}
}

// Issue mints a token for userID of the given kind, expiring after ttl. jti
// identifies the credential the token was derived from: a fresh random
// value for password logins, or the ApiKey id for kind=apiKey so
// AuthenticateToken can reload and revalidate the key on every request.
func (s *Signer) Issue(userID uuid.UUID, kind Kind, jti string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Kind: kind,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.priv)
}

// Parse verifies the signature and expiry of tokenString and returns its
// claims. Any algorithm other than EdDSA is rejected outright.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrInvalidToken
		}
		return s.pub, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
