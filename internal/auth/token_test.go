package auth

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/google/uuid"
)

func mustKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

func TestSignerIssueAndParse(t *testing.T) {
	pub, priv := mustKeyPair(t)
	signer := NewSigner(priv, pub)

	userID := uuid.New()
	token, err := signer.Issue(userID, KindPassword, "", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Fatalf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Kind != KindPassword {
		t.Fatalf("expected kind password, got %s", claims.Kind)
	}
}

func TestSignerRejectsWrongKey(t *testing.T) {
	pub, priv := mustKeyPair(t)
	otherPub, otherPriv := mustKeyPair(t)
	_ = otherPub

	signer := NewSigner(priv, pub)
	token, err := signer.Issue(uuid.New(), KindPassword, "", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	impostor := NewSigner(otherPriv, otherPub)
	if _, err := impostor.Parse(token); err == nil {
		t.Fatalf("expected token signed by a different key to be rejected")
	}
}

func TestSignerRejectsExpiredToken(t *testing.T) {
	pub, priv := mustKeyPair(t)
	signer := NewSigner(priv, pub)

	token, err := signer.Issue(uuid.New(), KindPassword, "", -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := signer.Parse(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
