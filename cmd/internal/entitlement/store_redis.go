package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Records are JSON values under
// "warden:entitlement:<subject>:<evidence>". Redis SET is atomic per key,
// which satisfies the last-writer-wins upsert contract.
//
// Keys expire a while past the freshness window purely as garbage collection;
// the Cache, not Redis, owns the freshness decision.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed entitlement store. ttl bounds how long
// dead records linger; zero disables expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("entitlement: nil redis client")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(subjectID, evidenceKey string) string {
	return "warden:entitlement:" + subjectID + ":" + evidenceKey
}

// Get returns the record for the pair or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, subjectID, evidenceKey string) (Record, error) {
	raw, err := s.client.Get(ctx, redisKey(subjectID, evidenceKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// A corrupt value is indistinguishable from a miss; the next oracle
		// call overwrites it.
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Upsert overwrites the record for its pair.
func (s *RedisStore) Upsert(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(rec.SubjectID, rec.EvidenceKey), raw, s.ttl).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }
