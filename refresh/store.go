package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the subject has no live refresh record.
var ErrNotFound = errors.New("refresh record not found")

// ErrStoreUnavailable is an exported constant or variable used by the token engine.
var ErrStoreUnavailable = errors.New("refresh store unavailable")

// RotateStatus defines a public type used by authtokens APIs.
//
// RotateStatus instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RotateStatus int64

const (
	// RotateMissing is an exported constant or variable used by the token engine.
	RotateMissing RotateStatus = 0
	// RotateMismatch is an exported constant or variable used by the token engine.
	RotateMismatch RotateStatus = 1
	// RotateRotated is an exported constant or variable used by the token engine.
	RotateRotated RotateStatus = 2
)

const rotateScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`

var rotateLua = redis.NewScript(rotateScript)

// Store is a Redis-backed refresh-credential store holding at most one live
// credential per subject, with atomic compare-and-swap rotation.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore creates a [Store] backed by the given Redis client. prefix sets
// the Redis key namespace; opTimeout bounds every store round trip (0
// disables the per-call deadline).
func NewStore(redis redis.UniversalClient, prefix string, opTimeout time.Duration) *Store {
	return &Store{
		redis:     redis,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

func (s *Store) key(subjectID string) string {
	return s.prefix + ":" + subjectID
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Put unconditionally installs credential as the subject's live record with
// the given TTL, replacing whatever was there. Login always wins.
//
//	Performance: 1 Redis SET.
func (s *Store) Put(ctx context.Context, subjectID, credential string, ttl time.Duration) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(subjectID), credential, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the subject's live credential, or [ErrNotFound] when no record
// exists (never stored, expired, or deleted).
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, subjectID string) (string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	value, err := s.redis.Get(ctx, s.key(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return value, nil
}

// Delete removes the subject's record. Deleting an absent record is not an
// error; only the round trip itself can fail.
//
//	Performance: 1 Redis DEL.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(subjectID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Rotate atomically replaces current with next if and only if the stored
// value equals current, resetting the TTL. The compare and the swap run in
// one server-side script, so of any number of concurrent rotations presenting
// the same current value exactly one observes [RotateRotated].
//
// The script runs detached from the caller's cancellation: once a rotation
// has been validated it must complete server-side even if the client
// connection dies, otherwise the slot's state would depend on request
// lifetime. The per-call timeout still applies.
//
//	Performance: 1 Redis EVALSHA.
func (s *Store) Rotate(ctx context.Context, subjectID, current, next string, ttl time.Duration) (RotateStatus, error) {
	ctx, cancel := s.opContext(context.WithoutCancel(ctx))
	defer cancel()

	result, err := rotateLua.Run(ctx, s.redis,
		[]string{s.key(subjectID)},
		current, next, ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch status := RotateStatus(result); status {
	case RotateMissing, RotateMismatch, RotateRotated:
		return status, nil
	default:
		return 0, fmt.Errorf("%w: unexpected rotate status %d", ErrStoreUnavailable, result)
	}
}
