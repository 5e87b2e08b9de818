package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"warden/cmd/internal/fingerprint"
)

const testIdentity = fingerprint.Identity("cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")

func TestInMemoryStore_TouchReportsFirstSight(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	isNew, err := s.Touch(ctx, testIdentity, "203.0.113.7", now)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if !isNew {
		t.Fatalf("first touch must report a new identity")
	}

	isNew, err = s.Touch(ctx, testIdentity, "203.0.113.8", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if isNew {
		t.Fatalf("second touch must not report a new identity")
	}

	row, err := s.Get(ctx, testIdentity)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !row.FirstSeenAt.Equal(now) {
		t.Fatalf("first_seen_at must not move on re-touch: %v", row.FirstSeenAt)
	}
	if row.LastAddr != "203.0.113.8" || !row.LastSeenAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("last seen not updated: %+v", row)
	}
}

func TestInMemoryStore_GetMiss(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	if _, err := s.Get(context.Background(), testIdentity); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
