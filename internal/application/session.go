package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var errEmptyAccessToken = errors.New("access token is empty")

// SessionManager owns the credential pair and the cached identity.
// Every change is written to the store before it becomes visible in memory.
type SessionManager struct {
	store  ports.KeyValueStore
	logger *zap.Logger

	mu          sync.RWMutex
	credentials domain.CredentialPair
	identity    *domain.Identity
}

var _ ports.CredentialKeeper = (*SessionManager)(nil)

func NewSessionManager(store ports.KeyValueStore, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionManager{store: store, logger: logger}
}

// Restore loads the persisted session into memory. It is safe to call
// repeatedly and does nothing when no access token is stored.
func (m *SessionManager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.loadLocked(ctx)
	return err
}

func (m *SessionManager) SetSession(ctx context.Context, pair domain.CredentialPair, identity domain.Identity) error {
	if !pair.HasAccess() {
		return errEmptyAccessToken
	}

	encoded, err := json.Marshal(toIdentityRecord(identity))
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persistCredentials(ctx, pair); err != nil {
		return err
	}
	if err := m.store.Put(ctx, KeyIdentity, string(encoded)); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}

	m.credentials = pair
	m.identity = &identity

	return nil
}

// UpdateCredentials replaces the token pair after a refresh and keeps the
// cached identity.
func (m *SessionManager) UpdateCredentials(ctx context.Context, pair domain.CredentialPair) error {
	if !pair.HasAccess() {
		return errEmptyAccessToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persistCredentials(ctx, pair); err != nil {
		return err
	}
	m.credentials = pair

	return nil
}

// UpdateIdentity refreshes the cached identity of an authenticated session.
func (m *SessionManager) UpdateIdentity(ctx context.Context, identity domain.Identity) error {
	encoded, err := json.Marshal(toIdentityRecord(identity))
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.credentials.HasAccess() {
		return domain.ErrAuthExpired
	}
	if err := m.store.Put(ctx, KeyIdentity, string(encoded)); err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	m.identity = &identity

	return nil
}

// ClearSession drops the credentials and identity from memory and storage.
// Memory is cleared even when a storage delete fails.
func (m *SessionManager) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.credentials = domain.CredentialPair{}
	m.identity = nil

	var errs []error
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyIdentity} {
		if err := m.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.credentials.HasAccess()
}

// ResolveCredential returns the credential pair to use for a request: memory
// first, then durable storage. A pair found in storage is installed in memory.
// An empty pair with a nil error means the caller is anonymous.
func (m *SessionManager) ResolveCredential(ctx context.Context) (domain.CredentialPair, error) {
	m.mu.RLock()
	pair := m.credentials
	m.mu.RUnlock()
	if pair.HasAccess() {
		return pair, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.loadLocked(ctx)
}

func (m *SessionManager) Credentials() domain.CredentialPair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.credentials
}

func (m *SessionManager) Identity() (domain.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.identity == nil || !m.credentials.HasAccess() {
		return domain.Identity{}, false
	}

	return *m.identity, true
}

// AccessTokenExpiresAt reads the exp claim of the access token without
// verifying it. The zero time means unknown.
func (m *SessionManager) AccessTokenExpiresAt() time.Time {
	m.mu.RLock()
	token := m.credentials.AccessToken
	m.mu.RUnlock()

	return tokenExpiry(token)
}

func tokenExpiry(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}

	return exp.Time
}

func (m *SessionManager) loadLocked(ctx context.Context) (domain.CredentialPair, error) {
	if m.credentials.HasAccess() {
		return m.credentials, nil
	}

	access, err := m.optional(ctx, KeyAccessToken)
	if err != nil {
		return domain.CredentialPair{}, err
	}
	if access == "" {
		return domain.CredentialPair{}, nil
	}

	refresh, err := m.optional(ctx, KeyRefreshToken)
	if err != nil {
		return domain.CredentialPair{}, err
	}

	rawIdentity, err := m.optional(ctx, KeyIdentity)
	if err != nil {
		return domain.CredentialPair{}, err
	}

	m.credentials = domain.CredentialPair{AccessToken: access, RefreshToken: refresh}
	m.identity = nil
	if rawIdentity != "" {
		var record identityRecord
		if err := json.Unmarshal([]byte(rawIdentity), &record); err != nil {
			m.logger.Warn("dropping malformed cached identity", zap.Error(err))
		} else {
			identity := record.toDomain()
			m.identity = &identity
		}
	}

	return m.credentials, nil
}

func (m *SessionManager) optional(ctx context.Context, key string) (string, error) {
	value, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load %s: %w", key, err)
	}

	return value, nil
}

func (m *SessionManager) persistCredentials(ctx context.Context, pair domain.CredentialPair) error {
	if err := m.store.Put(ctx, KeyAccessToken, pair.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}

	if pair.HasRefresh() {
		if err := m.store.Put(ctx, KeyRefreshToken, pair.RefreshToken); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
		return nil
	}

	if err := m.store.Delete(ctx, KeyRefreshToken); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

type identityRecord struct {
	ID       string              `json:"id"`
	Username string              `json:"username"`
	Email    string              `json:"email"`
	IsAdmin  bool                `json:"is_admin"`
	Stats    identityStatsRecord `json:"stats"`
}

type identityStatsRecord struct {
	VideosUploaded     int64 `json:"videos_uploaded"`
	TotalLikesReceived int64 `json:"total_likes_received"`
	TotalViews         int64 `json:"total_views"`
}

func toIdentityRecord(identity domain.Identity) identityRecord {
	return identityRecord{
		ID:       identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		IsAdmin:  identity.IsAdmin,
		Stats: identityStatsRecord{
			VideosUploaded:     identity.Stats.VideosUploaded,
			TotalLikesReceived: identity.Stats.TotalLikesReceived,
			TotalViews:         identity.Stats.TotalViews,
		},
	}
}

func (r identityRecord) toDomain() domain.Identity {
	return domain.Identity{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		IsAdmin:  r.IsAdmin,
		Stats: domain.IdentityStats{
			VideosUploaded:     r.Stats.VideosUploaded,
			TotalLikesReceived: r.Stats.TotalLikesReceived,
			TotalViews:         r.Stats.TotalViews,
		},
	}
}
