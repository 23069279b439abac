package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service wraps repository operations with expiry handling.
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

// NewService returns a session service issuing sessions that live for ttl.
func NewService(r Repository, ttl time.Duration) *Service {
	return &Service{repo: r, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// CreateSession stores a new session for username and returns its id.
func (s *Service) CreateSession(ctx context.Context, username string) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Resolve returns the username of a live session, or "" when the session is
// unknown or expired.
func (s *Service) Resolve(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", nil
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil || sess == nil {
		return "", err
	}
	if sess.Expired(s.now()) {
		// cleanup expired session
		_ = s.repo.Delete(ctx, id)
		return "", nil
	}
	return sess.Username, nil
}

// DeleteSession removes the session; unknown ids are ignored.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// TTL is the lifetime of new sessions.
func (s *Service) TTL() time.Duration { return s.ttl }
