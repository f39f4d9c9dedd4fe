package redis

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultMaxRetries bounds optimistic transaction attempts before a ConflictError
	DefaultMaxRetries = 5
	// DefaultRetryBackoff is the base wait between two attempts
	DefaultRetryBackoff = 10 * time.Millisecond
)

// Store handles Redis persistence of entries and metrics aggregates.
// Every read-modify-write runs under WATCH/MULTI.
type Store struct {
	client     *redis.Client
	maxRetries int
	backoff    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRetries sets how many times a conflicting transaction is attempted.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base backoff between attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.backoff = d
		}
	}
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client:     client,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// watch runs fn in an optimistic transaction over keys, retrying when a
// watched key changed before EXEC.
func (s *Store) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if attempt == s.maxRetries {
			break
		}
		if err := sleep(ctx, s.jitter(attempt)); err != nil {
			return err
		}
	}
	return &domain.ConflictError{Key: keys[0], Attempts: s.maxRetries}
}

func (s *Store) jitter(attempt int) time.Duration {
	if s.backoff <= 0 {
		return 0
	}
	base := s.backoff * time.Duration(attempt)
	return base/2 + time.Duration(rand.Int63n(int64(base)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
