package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testSubject  = "0x51a1ceb83b83f1985a81c295d1ff28a1c9f2d5bd"
	testEvidence = "0xcollection-7c3e"
)

func testCache(t *testing.T, store Store, oracle Oracle) *Cache {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCache(log, Config{FreshnessWindow: 24 * time.Hour}, store, oracle)
}

func fixedOracle(res OracleResult, calls *atomic.Int64) Oracle {
	return func(_ context.Context, _ string) (OracleResult, error) {
		if calls != nil {
			calls.Add(1)
		}
		return res, nil
	}
}

func TestCheck_MissCallsOracleAndCaches(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	store := NewInMemoryStore()
	c := testCache(t, store, fixedOracle(OracleResult{Holds: true, Quantity: 2}, &calls))

	rec, err := c.Check(context.Background(), testSubject, testEvidence, false)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !rec.Holds || rec.Quantity != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 oracle call, got %d", calls.Load())
	}

	stored, err := store.Get(context.Background(), testSubject, testEvidence)
	if err != nil {
		t.Fatalf("record not cached: %v", err)
	}
	if stored.SubjectID != testSubject || stored.EvidenceKey != testEvidence {
		t.Fatalf("cached under wrong pair: %+v", stored)
	}
}

func TestCheck_FreshPositiveServedFromCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	store := NewInMemoryStore()
	c := testCache(t, store, fixedOracle(OracleResult{Holds: true, Quantity: 1}, &calls))

	now := time.Now().UTC()
	c.now = func() time.Time { return now }

	// One second inside the freshness window.
	seed := Record{
		SubjectID:   testSubject,
		EvidenceKey: testEvidence,
		Holds:       true,
		Quantity:    1,
		CheckedAt:   now.Add(-c.window + time.Second),
	}
	if err := store.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec, err := c.Check(context.Background(), testSubject, testEvidence, false)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("fresh positive must not call the oracle, got %d calls", calls.Load())
	}
	if !rec.CheckedAt.Equal(seed.CheckedAt) {
		t.Fatalf("expected the cached record back, got %+v", rec)
	}
}

func TestCheck_StalePositiveTriggersOneOracleCall(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	store := NewInMemoryStore()
	c := testCache(t, store, fixedOracle(OracleResult{Holds: true, Quantity: 3}, &calls))

	now := time.Now().UTC()
	c.now = func() time.Time { return now }

	// One second past the freshness window.
	seed := Record{
		SubjectID:   testSubject,
		EvidenceKey: testEvidence,
		Holds:       true,
		Quantity:    1,
		CheckedAt:   now.Add(-c.window - time.Second),
	}
	if err := store.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec, err := c.Check(context.Background(), testSubject, testEvidence, false)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("stale positive must trigger exactly one oracle call, got %d", calls.Load())
	}
	if rec.Quantity != 3 || !rec.CheckedAt.Equal(now) {
		t.Fatalf("expected refreshed record, got %+v", rec)
	}
}

func TestCheck_NegativeAlwaysRechecked(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	store := NewInMemoryStore()
	c := testCache(t, store, fixedOracle(OracleResult{Holds: false}, &calls))

	// A negative record checked moments ago is still not trusted.
	seed := Record{
		SubjectID:   testSubject,
		EvidenceKey: testEvidence,
		Holds:       false,
		CheckedAt:   time.Now().UTC(),
	}
	if err := store.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Check(context.Background(), testSubject, testEvidence, false); err != nil {
			t.Fatalf("Check %d: %v", i, err)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("negative records must be re-checked on every access, got %d calls", calls.Load())
	}
}

func TestCheck_ForceRefreshSkipsCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	store := NewInMemoryStore()
	c := testCache(t, store, fixedOracle(OracleResult{Holds: true, Quantity: 9}, &calls))

	seed := Record{
		SubjectID:   testSubject,
		EvidenceKey: testEvidence,
		Holds:       true,
		Quantity:    1,
		CheckedAt:   time.Now().UTC(),
	}
	if err := store.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec, err := c.Check(context.Background(), testSubject, testEvidence, true)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("forceRefresh must call the oracle, got %d calls", calls.Load())
	}
	if rec.Quantity != 9 {
		t.Fatalf("expected refreshed quantity, got %+v", rec)
	}
}

func TestCheck_OracleFailureNotCached(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore()
	c := testCache(t, store, func(_ context.Context, _ string) (OracleResult, error) {
		return OracleResult{}, errors.New("rpc: connection refused")
	})

	_, err := c.Check(context.Background(), testSubject, testEvidence, false)
	if !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}

	// The failure must not be persisted as a negative result.
	if _, err := store.Get(context.Background(), testSubject, testEvidence); !errors.Is(err, ErrNotFound) {
		t.Fatalf("oracle failure was cached: %v", err)
	}
}

func TestCheck_SingleFlight(t *testing.T) {
	t.Parallel()

	const callers = 8

	var calls atomic.Int64
	release := make(chan struct{})
	oracle := func(_ context.Context, _ string) (OracleResult, error) {
		calls.Add(1)
		<-release
		return OracleResult{Holds: true, Quantity: 4}, nil
	}

	store := NewInMemoryStore()
	c := testCache(t, store, oracle)

	var wg sync.WaitGroup
	results := make([]Record, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Check(context.Background(), testSubject, testEvidence, false)
		}(i)
	}

	// Let every caller reach the in-flight call before releasing the oracle.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected exactly 1 oracle call for %d concurrent checks, got %d", callers, calls.Load())
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different record: %+v vs %+v", i, results[i], results[0])
		}
	}
}
