package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/config"
	"github.com/tkbstudios/tinet/internal/server/metrics"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
	"github.com/tkbstudios/tinet/internal/tivars"
)

// Generated credential lengths.
const (
	UserAPIKeyLength   = 70
	CalcKeyLength      = 50
	SessionTokenLength = 256
)

// CredentialStore issues and checks user API keys, calculator keys and
// calculator session tokens.
type CredentialStore struct {
	db                   *sql.DB
	repomanager          repomanager.RepositoryManager
	audit                *AuditLog
	sessionTokenValidity time.Duration
	now                  func() time.Time
}

func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, audit *AuditLog) *CredentialStore {
	return &CredentialStore{
		db:                   db,
		repomanager:          m,
		audit:                audit,
		sessionTokenValidity: cfg.SessionTokenValidityDuration,
		now:                  time.Now,
	}
}

// IssueAPIKey replaces the identity's API key with a fresh one. The previous
// key stops resolving immediately.
func (s *CredentialStore) IssueAPIKey(ctx context.Context, identity *models.Identity, ip string) (string, error) {
	key, err := common.RandomString(UserAPIKeyLength, common.Alphanumeric)
	if err != nil {
		return "", common.ErrorInternal
	}
	if err := s.repomanager.Identities(s.db).SetAPIKey(ctx, identity.ID, key); err != nil {
		return "", fmt.Errorf("error storing api key: %w", err)
	}
	identity.APIKey = key
	s.audit.Record(ctx, ActionAPIKeyIssued, ip, identity.UserName)
	return key, nil
}

// IssueCalculatorKeyfile rotates the calculator key and returns the AppVar
// holding it.
func (s *CredentialStore) IssueCalculatorKeyfile(ctx context.Context, identity *models.Identity, ip string) ([]byte, error) {
	calcKey, err := common.RandomString(CalcKeyLength, common.Alphanumeric)
	if err != nil {
		return nil, common.ErrorInternal
	}
	data, err := tivars.Keyfile(identity.UserName, calcKey)
	if err != nil {
		return nil, fmt.Errorf("error building keyfile: %w", err)
	}
	if err := s.repomanager.Identities(s.db).SetCalcKey(ctx, identity.ID, calcKey); err != nil {
		return nil, fmt.Errorf("error storing calc key: %w", err)
	}
	identity.CalcKey = calcKey
	s.audit.Record(ctx, ActionKeyfileIssued, ip, identity.UserName)
	return data, nil
}

// AuthenticateCalculator finds the identity matching both userName and
// calcKey. A mismatch on either field is reported as common.ErrorNotFound.
func (s *CredentialStore) AuthenticateCalculator(ctx context.Context, userName, calcKey string) (*models.Identity, error) {
	identity, err := s.repomanager.Identities(s.db).GetByCalcCredentials(ctx, userName, calcKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.AuthAttempts.WithLabelValues(metrics.ChannelCalcKey, metrics.OutcomeFailure).Inc()
			return nil, common.ErrorNotFound
		}
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelCalcKey, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("error searching identity: %w", err)
	}
	metrics.AuthAttempts.WithLabelValues(metrics.ChannelCalcKey, metrics.OutcomeSuccess).Inc()
	return identity, nil
}

// CreateSessionToken stores a new token for identity. Every call yields a
// distinct token.
func (s *CredentialStore) CreateSessionToken(ctx context.Context, identity *models.Identity) (*models.SessionToken, error) {
	value, err := common.RandomString(SessionTokenLength, common.Alphanumeric)
	if err != nil {
		return nil, common.ErrorInternal
	}
	userID := identity.ID
	token := &models.SessionToken{
		UserID:     &userID,
		Token:      value,
		ExpiryDate: s.now().Add(s.sessionTokenValidity),
	}
	out, err := s.repomanager.SessionTokens(s.db).Create(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error creating session token: %w", err)
	}
	return out, nil
}

// LoginCalculator authenticates a calculator and issues exactly one session
// token for the login.
func (s *CredentialStore) LoginCalculator(ctx context.Context, userName, calcKey, ip string) (*models.Identity, *models.SessionToken, error) {
	identity, err := s.AuthenticateCalculator(ctx, userName, calcKey)
	if err != nil {
		return nil, nil, err
	}
	token, err := s.CreateSessionToken(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	s.audit.Record(ctx, ActionSessionTokenIssued, ip, identity.UserName)
	return identity, token, nil
}

// ValidateSessionToken reports whether token exists and is still valid.
func (s *CredentialStore) ValidateSessionToken(ctx context.Context, token string) (bool, error) {
	t, err := s.repomanager.SessionTokens(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error searching session token: %w", err)
	}
	return t.IsValid(s.now()), nil
}

// ResolveSessionToken returns the owner of a valid token. Unknown tokens give
// common.ErrorNotFound, expired or revoked ones common.ErrTokenExpired.
func (s *CredentialStore) ResolveSessionToken(ctx context.Context, token string) (*models.Identity, error) {
	t, err := s.repomanager.SessionTokens(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.AuthAttempts.WithLabelValues(metrics.ChannelSessionToken, metrics.OutcomeFailure).Inc()
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching session token: %w", err)
	}
	if !t.IsValid(s.now()) || t.UserID == nil {
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelSessionToken, metrics.OutcomeFailure).Inc()
		return nil, common.ErrTokenExpired
	}

	identity, err := s.repomanager.Identities(s.db).GetByID(ctx, *t.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("error searching identity: %w", err)
	}
	return identity, nil
}

// CheckSessionToken verifies that token belongs to userName and is valid.
func (s *CredentialStore) CheckSessionToken(ctx context.Context, userName, token string) error {
	identity, err := s.repomanager.Identities(s.db).GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error searching identity: %w", err)
	}

	t, err := s.repomanager.SessionTokens(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error searching session token: %w", err)
	}
	if t.UserID == nil || *t.UserID != identity.ID {
		return common.ErrorNotFound
	}
	if !t.IsValid(s.now()) {
		return common.ErrTokenExpired
	}
	return nil
}

// ExpireAllSessionTokens revokes every token of identity and returns how many
// were still active.
func (s *CredentialStore) ExpireAllSessionTokens(ctx context.Context, identity *models.Identity, ip string) (int64, error) {
	n, err := s.repomanager.SessionTokens(s.db).ExpireAllForUser(ctx, identity.ID)
	if err != nil {
		return 0, fmt.Errorf("error expiring session tokens: %w", err)
	}
	s.audit.Record(ctx, ActionSessionTokensExpire, ip, identity.UserName)
	return n, nil
}

// ExpireAllWebSessions ends the caller's current web session only.
func (s *CredentialStore) ExpireAllWebSessions(ctx context.Context, identity *models.Identity, currentSessionKey string) error {
	if currentSessionKey == "" {
		return nil
	}
	if err := s.repomanager.WebSessions(s.db).ExpireByKey(ctx, currentSessionKey, s.now()); err != nil {
		return fmt.Errorf("error expiring web session: %w", err)
	}
	return nil
}

// ResolveUserAPIKey returns the identity owning key. Any miss is
// common.ErrorUnauthorized.
func (s *CredentialStore) ResolveUserAPIKey(ctx context.Context, key string) (*models.Identity, error) {
	identity, err := s.repomanager.Identities(s.db).GetByAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.AuthAttempts.WithLabelValues(metrics.ChannelUserAPIKey, metrics.OutcomeFailure).Inc()
			return nil, common.ErrorUnauthorized
		}
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelUserAPIKey, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("error searching identity: %w", err)
	}
	metrics.AuthAttempts.WithLabelValues(metrics.ChannelUserAPIKey, metrics.OutcomeSuccess).Inc()
	return identity, nil
}
