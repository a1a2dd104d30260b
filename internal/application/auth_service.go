package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
	"go.uber.org/zap"
)

type syncer interface {
	Sync(ctx context.Context) (SyncResult, error)
}

type LoginResult struct {
	Identity domain.Identity
	Sync     SyncResult
	// SyncErr is set when the post-login sync failed. The login itself succeeded.
	SyncErr error
}

type Whoami struct {
	Authenticated bool
	Identity      domain.Identity
	ExpiresAt     time.Time
}

type AuthService struct {
	session *SessionManager
	auth    ports.AuthAPI
	queue   *VoteQueue
	syncer  syncer
	logger  *zap.Logger
}

func NewAuthService(session *SessionManager, auth ports.AuthAPI, queue *VoteQueue, syncer syncer, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{session: session, auth: auth, queue: queue, syncer: syncer, logger: logger}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if err := validateInput(loginInput{Email: email, Password: password}); err != nil {
		return LoginResult{}, err
	}

	result, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	return s.establish(ctx, result)
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateInput(registerInput{Username: username, Email: email, Password: password}); err != nil {
		return LoginResult{}, err
	}

	result, err := s.auth.Register(ctx, username, email, password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("register: %w", err)
	}

	return s.establish(ctx, result)
}

func (s *AuthService) establish(ctx context.Context, result ports.AuthResult) (LoginResult, error) {
	if err := s.session.SetSession(ctx, result.Credentials, result.Identity); err != nil {
		return LoginResult{}, fmt.Errorf("install session: %w", err)
	}

	out := LoginResult{Identity: result.Identity}
	synced, err := s.syncer.Sync(ctx)
	out.Sync = synced
	if err != nil {
		s.logger.Warn("post-login vote sync failed", zap.Error(err))
		out.SyncErr = err
	}

	return out, nil
}

// Logout revokes the refresh token on a best-effort basis, clears the session
// and drops votes that never reached the server so they cannot be replayed
// under the next account.
func (s *AuthService) Logout(ctx context.Context) error {
	pair, err := s.session.ResolveCredential(ctx)
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}

	if pair.HasRefresh() {
		if err := s.auth.Logout(ctx, pair.RefreshToken); err != nil {
			s.logger.Warn("server logout failed", zap.Error(err))
		}
	}

	var errs []error
	if err := s.session.ClearSession(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear session: %w", err))
	}

	pending, err := s.queue.ListPending(ctx)
	if err == nil && len(pending) > 0 {
		s.logger.Warn("discarding unsynced votes on logout", zap.Int("count", len(pending)))
	}
	if err := s.queue.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear vote queue: %w", err))
	}

	return errors.Join(errs...)
}

// RefreshProfile fetches the identity from the server and updates the cache.
func (s *AuthService) RefreshProfile(ctx context.Context) (domain.Identity, error) {
	pair, err := s.session.ResolveCredential(ctx)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("resolve credentials: %w", err)
	}
	if !pair.HasAccess() {
		return domain.Identity{}, fmt.Errorf("not logged in: %w", domain.ErrAuthExpired)
	}

	identity, err := s.auth.Me(ctx)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("fetch profile: %w", err)
	}

	if err := s.session.UpdateIdentity(ctx, identity); err != nil {
		return domain.Identity{}, fmt.Errorf("cache profile: %w", err)
	}

	return identity, nil
}

func (s *AuthService) Whoami(ctx context.Context) (Whoami, error) {
	if err := s.session.Restore(ctx); err != nil {
		return Whoami{}, fmt.Errorf("restore session: %w", err)
	}

	if !s.session.IsAuthenticated() {
		return Whoami{}, nil
	}

	identity, _ := s.session.Identity()
	return Whoami{
		Authenticated: true,
		Identity:      identity,
		ExpiresAt:     s.session.AccessTokenExpiresAt(),
	}, nil
}
