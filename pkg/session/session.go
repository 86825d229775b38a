// Package session implements the browser session store on Redis.
//
// Sessions are JSON documents keyed by a random UUID under the
// "session:" prefix. Expiry is delegated to Redis TTLs, so there is no
// sweeper: an expired session simply stops existing. The login flow in
// pkg/auth creates a session after a successful external login, and
// [Store.Touch] lets request handlers slide the expiry on activity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tosca-platform/tosca-core/pkg/clients/redis"
	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// DefaultTTL is the session lifetime when none is configured, matching
// the conventional two-week browser session.
const DefaultTTL = 14 * 24 * time.Hour

// keyPrefix namespaces session keys so they can share a Redis database
// with other transient state.
const keyPrefix = "session:"

// Session is the authenticated browser session persisted in Redis.
type Session struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	Username  string    `json:"username"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

// Store creates, loads, and deletes sessions. It is safe for concurrent
// use.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a session store over an established Redis client.
func NewStore(client *redis.Client, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new session for the given account and returns it.
// The session ID is a random UUID, never derived from account data.
func (s *Store) Create(ctx context.Context, accountID int64, username string, isStaff bool) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Username:  username,
		IsStaff:   isStaff,
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, tcerr.Wrap(err, tcerr.CodeInternal,
			"session: failed to encode session")
	}

	if err := s.client.Set(ctx, keyPrefix+sess.ID, payload, s.ttl); err != nil {
		return nil, err
	}

	s.logger.Debug("session created",
		slog.String("session_id", sess.ID),
		slog.Int64("account_id", accountID))
	return sess, nil
}

// Get loads a session by ID. Returns [tcerr.CodeNotFound] when the
// session does not exist or has expired.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, tcerr.Newf(tcerr.CodeNotFound,
				"session: no session %q", id)
		}
		return nil, err
	}

	sess := &Session{}
	if err := json.Unmarshal([]byte(raw), sess); err != nil {
		// A corrupt payload is unrecoverable; treat it as absent so the
		// caller forces a fresh login.
		s.logger.Warn("discarding corrupt session payload",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
		return nil, tcerr.Newf(tcerr.CodeNotFound,
			"session: no session %q", id)
	}
	return sess, nil
}

// Delete removes a session. Deleting a session that does not exist is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.Del(ctx, keyPrefix+id)
	return err
}

// Touch slides the session expiry out to a full TTL from now. Returns
// [tcerr.CodeNotFound] when the session does not exist.
func (s *Store) Touch(ctx context.Context, id string) error {
	ok, err := s.client.Expire(ctx, keyPrefix+id, s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return tcerr.Newf(tcerr.CodeNotFound, "session: no session %q", id)
	}
	return nil
}
