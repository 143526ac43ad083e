// Package service contains application services: session lifecycle,
// course-cache reconciliation and assignment assembly.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	pkgcrypto "ucloud-proxy/internal/crypto"
	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/limiter"
	"ucloud-proxy/internal/model"
	"ucloud-proxy/internal/repository"
	"ucloud-proxy/internal/token"
)

// Authenticator performs the actual upstream credential exchange.
type Authenticator interface {
	// Login exchanges username/password for a fresh session.
	Login(ctx context.Context, username, password string) (*model.Session, error)
	// Refresh renews a session from its refresh token.
	Refresh(ctx context.Context, refreshToken string) (*model.Session, error)
}

// SessionService yields a valid upstream session for a user, reusing,
// refreshing or re-authenticating as needed.
type SessionService interface {
	// Resolve returns a usable session for username. An empty password
	// means "not supplied": only paths that can reuse or refresh a
	// stored session may succeed then.
	Resolve(ctx context.Context, username, password, ip string) (*model.Session, error)
}

type SessionServiceImpl struct {
	creds repository.CredentialRepository
	auth  Authenticator
	lim   limiter.Limiter
	log   *zap.Logger
}

// NewSessionService constructs SessionService with required dependencies.
func NewSessionService(creds repository.CredentialRepository, auth Authenticator, lim limiter.Limiter, log *zap.Logger) *SessionServiceImpl {
	return &SessionServiceImpl{creds: creds, auth: auth, lim: lim, log: log}
}

// Resolve decides between reuse, refresh and full re-login. The
// branches are ordered and each one is terminal:
//  1. no stored row: full login (or ErrCredentialRequired without a password)
//  2. supplied password no longer matches the stored hash: full login
//  3. refresh token expired (or session blob unreadable): full login
//  4. access token expired, refresh token valid: one refresh call,
//     session column updated, password untouched
//  5. both tokens valid: return the stored session, no network, no writes
func (s *SessionServiceImpl) Resolve(ctx context.Context, username, password, ip string) (*model.Session, error) {
	cred, err := s.creds.Get(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return s.relogin(ctx, username, password, ip)
		}
		return nil, fmt.Errorf("%w: load credential: %v", errs.ErrStorage, err)
	}

	if password != "" && !pkgcrypto.VerifyPassword([]byte(password), cred.PwdSalt, cred.PwdHash) {
		s.log.Info("stored password mismatch, full login", zap.String("username", username))
		return s.relogin(ctx, username, password, ip)
	}

	var sess model.Session
	if err := json.Unmarshal(cred.SessionRaw, &sess); err != nil {
		s.log.Warn("stored session unreadable, full login", zap.String("username", username), zap.Error(err))
		return s.relogin(ctx, username, password, ip)
	}

	if token.IsExpired(sess.RefreshToken) {
		s.log.Info("refresh token expired, full login", zap.String("username", username))
		return s.relogin(ctx, username, password, ip)
	}

	if token.IsExpired(sess.AccessToken) {
		s.log.Info("access token expired, refreshing", zap.String("username", username))
		fresh, err := s.auth.Refresh(ctx, sess.RefreshToken)
		if err != nil {
			return nil, err
		}
		if fresh.Username == "" {
			fresh.Username = username
		}
		raw, err := json.Marshal(fresh)
		if err != nil {
			return nil, err
		}
		if err := s.creds.UpdateSession(ctx, username, raw); err != nil {
			return nil, fmt.Errorf("%w: persist session: %v", errs.ErrStorage, err)
		}
		return fresh, nil
	}

	return &sess, nil
}

// relogin performs a rate-limited full login and replaces the stored row.
func (s *SessionServiceImpl) relogin(ctx context.Context, username, password, ip string) (*model.Session, error) {
	if password == "" {
		return nil, errs.ErrCredentialRequired
	}

	ipHash := limiter.HashIP(ip)
	allowed, retryAfter, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return nil, fmt.Errorf("%w: limiter: %v", errs.ErrStorage, err)
	}
	if !allowed {
		s.log.Info("login blocked", zap.String("username", username), zap.Duration("retryAfter", retryAfter))
		return nil, errs.ErrRateLimited
	}

	sess, err := s.auth.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			// Record the failure; the credential error itself still
			// propagates unchanged so the client can re-prompt.
			_, _, _ = s.lim.Failure(ctx, username, ipHash)
		}
		return nil, err
	}
	_ = s.lim.Success(ctx, username, ipHash)

	sess.Username = username
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	salt, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return nil, err
	}
	cred := &model.Credential{
		Username:   username,
		PwdHash:    pkgcrypto.HashPassword([]byte(password), salt),
		PwdSalt:    salt,
		SessionRaw: raw,
	}
	if err := s.creds.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("%w: persist credential: %v", errs.ErrStorage, err)
	}
	return sess, nil
}
