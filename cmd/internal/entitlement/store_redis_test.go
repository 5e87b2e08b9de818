package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s, err := NewRedisStore(client, 48*time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := testRedisStore(t)
	ctx := context.Background()

	rec := Record{
		SubjectID:   testSubject,
		EvidenceKey: testEvidence,
		Holds:       true,
		Quantity:    7,
		CheckedAt:   time.Now().UTC().Truncate(time.Second),
	}

	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Get(ctx, testSubject, testEvidence)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Holds != rec.Holds || got.Quantity != rec.Quantity || !got.CheckedAt.Equal(rec.CheckedAt) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, rec)
	}
}

func TestRedisStore_GetMiss(t *testing.T) {
	s := testRedisStore(t)

	if _, err := s.Get(context.Background(), testSubject, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_CorruptValueIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s, err := NewRedisStore(client, 0)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	if err := mr.Set(redisKey(testSubject, testEvidence), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := s.Get(context.Background(), testSubject, testEvidence); !errors.Is(err, ErrNotFound) {
		t.Fatalf("corrupt value must read as a miss, got %v", err)
	}
}

func TestRedisStore_UpsertOverwrites(t *testing.T) {
	s := testRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.Upsert(ctx, Record{SubjectID: testSubject, EvidenceKey: testEvidence, Holds: false, CheckedAt: now}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.Upsert(ctx, Record{SubjectID: testSubject, EvidenceKey: testEvidence, Holds: true, Quantity: 2, CheckedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.Get(ctx, testSubject, testEvidence)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Holds || got.Quantity != 2 {
		t.Fatalf("last writer did not win: %+v", got)
	}
}
