package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"testing"
)

func generateSigningKeyEnvValue(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://localhost/recordvault")
	t.Setenv("ED25519_SIGNING_KEY", generateSigningKeyEnvValue(t))
}

func TestLoadMissingRequiredVar(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HOST", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing HOST")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxPaginationSize != 200 {
		t.Errorf("expected default MaxPaginationSize=200, got %d", cfg.MaxPaginationSize)
	}
	if cfg.DefaultPaginationSize != 50 {
		t.Errorf("expected default DefaultPaginationSize=50, got %d", cfg.DefaultPaginationSize)
	}
	if !cfg.ProtectSuperuser {
		t.Error("expected ProtectSuperuser to default true")
	}
	if !cfg.EnablePruneJob {
		t.Error("expected EnablePruneJob to default true")
	}
	if cfg.SigningPrivateKey == nil || cfg.SigningPublicKey == nil {
		t.Fatal("expected signing keypair to be parsed")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_PAGINATION_SIZE", "500")
	t.Setenv("PROTECT_SUPERUSER", "false")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxPaginationSize != 500 {
		t.Errorf("expected overridden MaxPaginationSize=500, got %d", cfg.MaxPaginationSize)
	}
	if cfg.ProtectSuperuser {
		t.Error("expected ProtectSuperuser=false from env")
	}
}

func TestLoadRejectsMalformedSigningKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ED25519_SIGNING_KEY", "not a valid key")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed signing key")
	}
}
