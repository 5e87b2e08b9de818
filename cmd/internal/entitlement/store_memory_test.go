package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryStore_GetMiss(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	if _, err := s.Get(context.Background(), testSubject, testEvidence); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_UpsertOverwrites(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	first := Record{SubjectID: testSubject, EvidenceKey: testEvidence, Holds: false, CheckedAt: now}
	second := Record{SubjectID: testSubject, EvidenceKey: testEvidence, Holds: true, Quantity: 5, CheckedAt: now.Add(time.Minute)}

	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.Get(ctx, testSubject, testEvidence)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Holds || got.Quantity != 5 {
		t.Fatalf("last writer did not win: %+v", got)
	}
}

func TestInMemoryStore_PairIsolation(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	a := Record{SubjectID: testSubject, EvidenceKey: "evidence-a", Holds: true, CheckedAt: time.Now().UTC()}
	if err := s.Upsert(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := s.Get(ctx, testSubject, "evidence-b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pairs must be isolated, got %v", err)
	}
}
