package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
	"github.com/qazna-labs/recordvault/internal/store"
)

// Service issues and verifies bearer tokens and manages API key lifecycle.
type Service struct {
	users   store.UserStore
	apiKeys store.ApiKeyStore
	signer  *Signer

	passwordTokenTTL  time.Duration
	apiKeyTokenTTL    time.Duration
	maxAPIKeysPerUser int
}

// NewService wires a Service to its stores, signer, and the configured
// token TTLs / per-user API key cap.
func NewService(users store.UserStore, apiKeys store.ApiKeyStore, signer *Signer, passwordTokenTTL, apiKeyTokenTTL time.Duration, maxAPIKeysPerUser int) *Service {
	return &Service{
		users:             users,
		apiKeys:           apiKeys,
		signer:            signer,
		passwordTokenTTL:  passwordTokenTTL,
		apiKeyTokenTTL:    apiKeyTokenTTL,
		maxAPIKeysPerUser: maxAPIKeysPerUser,
	}
}

// SupportsTokens reports whether the service has a signer configured; used
// by the HTTP middleware to no-op when auth is unconfigured (e.g. in tests
// exercising unauthenticated routes only).
func (s *Service) SupportsTokens() bool { return s != nil && s.signer != nil }

// invalidCredentialsHash is compared against on a missing-user lookup so a
// failed login takes roughly the same time whether or not the username
// exists, never revealing which case occurred.
const invalidCredentialsHash = "$argon2id$v=19$m=65536,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Login verifies username/password and, on success, issues a password
// bearer token. Failures never distinguish "no such user" from "wrong
// password".
func (s *Service) Login(ctx context.Context, username, password string) (string, *apperr.Error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil || user == nil {
		_ = VerifyPassword(invalidCredentialsHash, password)
		return "", apperr.New(apperr.AuthInvalid, "invalid username or password")
	}
	if verr := VerifyPassword(user.PasswordHash, password); verr != nil {
		return "", apperr.New(apperr.AuthInvalid, "invalid username or password")
	}
	token, err := s.signer.Issue(user.ID, KindPassword, "", s.passwordTokenTTL)
	if err != nil {
		return "", apperr.Wrap(apperr.StorageError, "issue token", err)
	}
	return token, nil
}

// IssueAPIKey creates a new active API key for userID, enforcing
// MAX_API_KEYS_PER_USER, and returns the plaintext credential
// "<keyID>.<secret>" exactly once.
func (s *Service) IssueAPIKey(ctx context.Context, userID uuid.UUID) (string, *domain.ApiKey, *apperr.Error) {
	count, err := s.apiKeys.CountActiveByUser(ctx, userID)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.StorageError, "count api keys", err)
	}
	if count >= s.maxAPIKeysPerUser {
		return "", nil, apperr.Newf(apperr.BadRequest, "user already holds the maximum of %d active api keys", s.maxAPIKeysPerUser)
	}

	secret, err := GenerateAPIKeySecret()
	if err != nil {
		return "", nil, apperr.Wrap(apperr.StorageError, "generate api key", err)
	}
	key := &domain.ApiKey{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashAPIKeySecret(secret),
		Active:    true,
		ExpiresAt: time.Now().UTC().Add(s.apiKeyTokenTTL),
	}
	if err := s.apiKeys.Create(ctx, key); err != nil {
		return "", nil, apperr.Wrap(apperr.StorageError, "create api key", err)
	}
	return key.ID.String() + "." + secret, key, nil
}

// RotateAPIKey atomically replaces keyID's secret; the prior secret becomes
// invalid the instant the new one is committed.
func (s *Service) RotateAPIKey(ctx context.Context, keyID uuid.UUID) (string, *apperr.Error) {
	secret, err := GenerateAPIKeySecret()
	if err != nil {
		return "", apperr.Wrap(apperr.StorageError, "generate api key", err)
	}
	if err := s.apiKeys.Rotate(ctx, keyID, HashAPIKeySecret(secret), time.Now().UTC()); err != nil {
		return "", apperr.Wrap(apperr.StorageError, "rotate api key", err)
	}
	return keyID.String() + "." + secret, nil
}

// ExchangeAPIKey verifies a presented "<keyID>.<secret>" credential and
// mints a kind=apiKey bearer token whose jti ties back to the ApiKey row.
func (s *Service) ExchangeAPIKey(ctx context.Context, presented string) (string, *apperr.Error) {
	id, secret, ok := splitAPIKey(presented)
	if !ok {
		return "", apperr.New(apperr.AuthInvalid, "malformed api key")
	}
	key, err := s.apiKeys.Get(ctx, id)
	if err != nil || key == nil {
		return "", apperr.New(apperr.AuthInvalid, "invalid api key")
	}
	if !SecretMatchesHash(secret, key.TokenHash) {
		return "", apperr.New(apperr.AuthInvalid, "invalid api key")
	}
	if !key.Active || time.Now().UTC().After(key.ExpiresAt) {
		return "", apperr.New(apperr.AuthRevoked, "api key is no longer active")
	}
	token, tokErr := s.signer.Issue(key.UserID, KindAPIKey, key.ID.String(), s.apiKeyTokenTTL)
	if tokErr != nil {
		return "", apperr.Wrap(apperr.StorageError, "issue token", tokErr)
	}
	return token, nil
}

// AuthenticateToken verifies a bearer token's signature and expiry and, for
// API-key-derived tokens, reloads the ApiKey row to confirm it is still
// active.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil || user == nil {
		return Principal{}, ErrInvalidToken
	}
	if claims.Kind == KindAPIKey {
		apiKeyID, err := uuid.Parse(claims.ID)
		if err != nil {
			return Principal{}, ErrInvalidToken
		}
		key, err := s.apiKeys.Get(ctx, apiKeyID)
		if err != nil || key == nil || !key.Active || time.Now().UTC().After(key.ExpiresAt) {
			return Principal{}, ErrKeyRevoked
		}
	}
	return NewPrincipal(*user, claims.Kind), nil
}

func splitAPIKey(presented string) (uuid.UUID, string, bool) {
	idx := strings.IndexByte(presented, '.')
	if idx < 0 {
		return uuid.UUID{}, "", false
	}
	id, err := uuid.Parse(presented[:idx])
	if err != nil {
		return uuid.UUID{}, "", false
	}
	secret := presented[idx+1:]
	if secret == "" {
		return uuid.UUID{}, "", false
	}
	return id, secret, true
}
