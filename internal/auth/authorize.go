package auth

import "github.com/qazna-labs/recordvault/internal/domain"

// Principal is the authenticated caller of a request: the resolved User
// plus the kind of token that authenticated them.
type Principal struct {
	User      domain.User
	TokenKind Kind
}

// NewPrincipal builds a Principal for an authenticated user.
func NewPrincipal(user domain.User, kind Kind) Principal {
	return Principal{User: user, TokenKind: kind}
}
