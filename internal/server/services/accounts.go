// Package services contains server-side business logic. Services hold the
// database handle, a repository manager and the settings they need, and
// return errors wrapping the sentinels of package common.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/dbx"
	"github.com/tkbstudios/tinet/internal/server/auth"
	"github.com/tkbstudios/tinet/internal/server/config"
	"github.com/tkbstudios/tinet/internal/server/metrics"
	"github.com/tkbstudios/tinet/internal/server/models"
	"github.com/tkbstudios/tinet/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// WebLogin is the result of a successful password login.
type WebLogin struct {
	Identity   *models.Identity
	SessionKey string
	Token      string
	ExpiresAt  time.Time
}

// AccountService registers accounts, runs web logins and deletes accounts.
type AccountService struct {
	db                 *sql.DB
	repomanager        repomanager.RepositoryManager
	audit              *AuditLog
	jwtSecret          []byte
	webSessionValidity time.Duration
	passwordCost       int
	now                func() time.Time
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, audit *AuditLog) *AccountService {
	return &AccountService{
		db:                 db,
		repomanager:        m,
		audit:              audit,
		jwtSecret:          []byte(cfg.SecretKey),
		webSessionValidity: cfg.WebSessionValidityDuration,
		passwordCost:       bcrypt.DefaultCost,
		now:                time.Now,
	}
}

// Register creates an account. A taken username is common.ErrorConflict.
func (s *AccountService) Register(ctx context.Context, userName, email, password string) (*models.Identity, error) {
	hash, err := auth.HashPassword(password, s.passwordCost)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}

	identity := &models.Identity{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Bio:          models.DefaultBio,
	}
	out, err := s.repomanager.Identities(s.db).Create(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return out, nil
}

// Login checks the password and opens a web session. Unknown users and bad
// passwords are both common.ErrorUnauthorized.
func (s *AccountService) Login(ctx context.Context, userName, password, ip string) (*WebLogin, error) {
	identity, err := s.repomanager.Identities(s.db).GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.AuthAttempts.WithLabelValues(metrics.ChannelPassword, metrics.OutcomeFailure).Inc()
			return nil, common.ErrorUnauthorized
		}
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelPassword, metrics.OutcomeError).Inc()
		return nil, common.ErrorInternal
	}
	if !auth.VerifyPassword(identity.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelPassword, metrics.OutcomeFailure).Inc()
		return nil, common.ErrorUnauthorized
	}

	now := s.now()
	session := &models.WebSession{
		SessionKey: uuid.NewString(),
		UserID:     identity.ID,
		ExpireDate: now.Add(s.webSessionValidity),
	}
	if err := s.repomanager.WebSessions(s.db).Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating web session: %w", err)
	}

	token, err := auth.GenerateToken(session.SessionKey, identity.ID, s.jwtSecret, s.webSessionValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.repomanager.Identities(s.db).TouchLastLogin(ctx, identity.ID, now); err != nil {
		return nil, fmt.Errorf("error updating last login: %w", err)
	}
	identity.LastLogin = &now

	metrics.AuthAttempts.WithLabelValues(metrics.ChannelPassword, metrics.OutcomeSuccess).Inc()
	s.audit.Record(ctx, ActionWebLogin, ip, identity.UserName)

	return &WebLogin{
		Identity:   identity,
		SessionKey: session.SessionKey,
		Token:      token,
		ExpiresAt:  session.ExpireDate,
	}, nil
}

// Logout ends the web session sessionKey.
func (s *AccountService) Logout(ctx context.Context, identity *models.Identity, sessionKey, ip string) error {
	if err := s.repomanager.WebSessions(s.db).ExpireByKey(ctx, sessionKey, s.now()); err != nil {
		return fmt.Errorf("error expiring web session: %w", err)
	}
	s.audit.Record(ctx, ActionWebLogout, ip, identity.UserName)
	return nil
}

// ResolveWebSession maps a signed session token to its identity and session
// row. Every failure is common.ErrorUnauthorized.
func (s *AccountService) ResolveWebSession(ctx context.Context, token string) (*models.Identity, *models.WebSession, error) {
	identity, session, err := s.resolveWebSession(ctx, token)
	if err != nil {
		outcome := metrics.OutcomeFailure
		if !errors.Is(err, common.ErrorUnauthorized) {
			outcome = metrics.OutcomeError
		}
		metrics.AuthAttempts.WithLabelValues(metrics.ChannelWebSession, outcome).Inc()
		return nil, nil, err
	}
	metrics.AuthAttempts.WithLabelValues(metrics.ChannelWebSession, metrics.OutcomeSuccess).Inc()
	return identity, session, nil
}

func (s *AccountService) resolveWebSession(ctx context.Context, token string) (*models.Identity, *models.WebSession, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	session, err := s.repomanager.WebSessions(s.db).Get(ctx, claims.SessionKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, fmt.Errorf("error searching web session: %w", err)
	}
	if !session.IsActive(s.now()) || session.UserID != claims.UserID {
		return nil, nil, common.ErrorUnauthorized
	}

	identity, err := s.repomanager.Identities(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, fmt.Errorf("error searching identity: %w", err)
	}
	return identity, session, nil
}

// VerifyPassword re-reads the identity and checks password against the
// stored hash.
func (s *AccountService) VerifyPassword(ctx context.Context, userID int64, password string) (bool, error) {
	identity, err := s.repomanager.Identities(s.db).GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("error searching identity: %w", err)
	}
	return auth.VerifyPassword(identity.PasswordHash, password), nil
}

// DeleteAccount removes the identity and everything it owns in one
// transaction.
func (s *AccountService) DeleteAccount(ctx context.Context, identity *models.Identity) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.SessionTokens(tx).DeleteForUser(ctx, identity.ID); err != nil {
			return fmt.Errorf("error deleting session tokens: %w", err)
		}
		if err := s.repomanager.WebSessions(tx).DeleteForUser(ctx, identity.ID); err != nil {
			return fmt.Errorf("error deleting web sessions: %w", err)
		}
		if err := s.repomanager.AllowedApps(tx).DeleteForUser(ctx, identity.ID); err != nil {
			return fmt.Errorf("error deleting grants: %w", err)
		}

		audit := s.repomanager.Audit(tx)
		if err := audit.DeleteAppForUserName(ctx, identity.UserName); err != nil {
			return fmt.Errorf("error deleting app audit entries: %w", err)
		}
		if err := s.repomanager.AppKeys(tx).DeleteForUser(ctx, identity.ID); err != nil {
			return fmt.Errorf("error deleting app keys: %w", err)
		}
		if err := audit.DeleteForUserName(ctx, identity.UserName); err != nil {
			return fmt.Errorf("error deleting audit entries: %w", err)
		}

		if err := s.repomanager.Leaderboards(tx).DeleteEntriesForUser(ctx, identity.ID); err != nil {
			return fmt.Errorf("error deleting leaderboard entries: %w", err)
		}
		if err := s.repomanager.Identities(tx).Delete(ctx, identity.ID); err != nil {
			return fmt.Errorf("error deleting user: %w", err)
		}
		return nil
	})
}
