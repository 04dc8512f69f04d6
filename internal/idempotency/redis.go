// Package idempotency records Idempotency-Key headers in Redis so a retried
// create returns the record made by the first attempt instead of a duplicate.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const pending = "pending"

type State int

const (
	// Claimed means the caller owns the key and must Complete or Release it.
	Claimed State = iota
	// InFlight means another request holds the key and has not finished.
	InFlight
	// Completed means an earlier request finished; ResourceID is its result.
	Completed
)

type Claim struct {
	State      State
	ResourceID uint64
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

// Claim atomically takes the key, or reports what an earlier request left.
func (s *Store) Claim(ctx context.Context, scope, key string) (Claim, error) {
	k := s.key(scope, key)
	ok, err := s.client.SetNX(ctx, k, pending, s.ttl).Result()
	if err != nil {
		return Claim{}, err
	}
	if ok {
		return Claim{State: Claimed}, nil
	}

	v, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return s.Claim(ctx, scope, key)
	}
	if err != nil {
		return Claim{}, err
	}
	if v == pending {
		return Claim{State: InFlight}, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return Claim{}, fmt.Errorf("idempotency key %s holds %q", k, v)
	}
	return Claim{State: Completed, ResourceID: id}, nil
}

// Complete stores the id of the created resource under the claimed key.
func (s *Store) Complete(ctx context.Context, scope, key string, id uint64) error {
	return s.client.Set(ctx, s.key(scope, key), strconv.FormatUint(id, 10), s.ttl).Err()
}

// Release drops a claim after a failed create so the client may retry.
func (s *Store) Release(ctx context.Context, scope, key string) error {
	return s.client.Del(ctx, s.key(scope, key)).Err()
}
