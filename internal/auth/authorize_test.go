package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/domain"
)

func TestNewPrincipal(t *testing.T) {
	user := domain.User{ID: uuid.New(), Username: "alice"}
	principal := NewPrincipal(user, KindPassword)

	if principal.User.Username != "alice" {
		t.Fatalf("expected username alice, got %s", principal.User.Username)
	}
	if principal.TokenKind != KindPassword {
		t.Fatalf("expected KindPassword, got %s", principal.TokenKind)
	}
}
