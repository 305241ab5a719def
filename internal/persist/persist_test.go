package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	blob := []byte(`{"title":"v1"}`)
	if err := s.Save(ctx, "h1", blob); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "h1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("loaded %s", got)
	}

	// Mutating either slice must not affect the stored copy.
	blob[2] = 'X'
	got[2] = 'Y'
	again, _ := s.Load(ctx, "h1")
	if string(again) != `{"title":"v1"}` {
		t.Errorf("store shares memory with callers: %s", again)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, "abc-123", []byte("one")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "abc-123")
	if err != nil || string(got) != "one" {
		t.Fatalf("Load = %s, %v", got, err)
	}

	// No stray temp files after a successful save.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFileStoreRejectsUnsafeID(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), "../escape", []byte("x")); err == nil {
		t.Fatalf("path-traversal id was accepted")
	}
	if _, err := s.Load(context.Background(), "a/b"); err == nil {
		t.Fatalf("unsafe load id was accepted")
	}
}

func TestFileStoreLoadAnyPicksNewest(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, _, err := s.LoadAny(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty directory should be ErrNotFound, got %v", err)
	}

	if err := s.Save(ctx, "older", []byte("old")); err != nil {
		t.Fatal(err)
	}
	// Spread the mtimes apart; sub-millisecond resolution is not guaranteed
	// on every filesystem.
	past := time.Now().Add(-time.Hour)
	os.Chtimes(filepath.Join(s.Dir(), "older.json"), past, past)
	if err := s.Save(ctx, "newer", []byte("new")); err != nil {
		t.Fatal(err)
	}

	id, blob, err := s.LoadAny(ctx)
	if err != nil {
		t.Fatalf("LoadAny: %v", err)
	}
	if id != "newer" || string(blob) != "new" {
		t.Errorf("LoadAny = %s/%s, want newer/new", id, blob)
	}
}

// flaky fails a fixed number of times before succeeding.
type flaky struct {
	*MemoryStore
	failures int
	calls    int
}

func (f *flaky) Save(ctx context.Context, id string, blob []byte) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient")
	}
	return f.MemoryStore.Save(ctx, id, blob)
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	inner := &flaky{MemoryStore: NewMemoryStore(), failures: 2}
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2, EnableLog: false}
	r := NewRetrying(inner, cfg)

	if err := r.Save(context.Background(), "h1", []byte("x")); err != nil {
		t.Fatalf("Save should recover after retries: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingGivesUpAfterMaxRetries(t *testing.T) {
	inner := &flaky{MemoryStore: NewMemoryStore(), failures: 100}
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2, EnableLog: false}
	r := NewRetrying(inner, cfg)

	if err := r.Save(context.Background(), "h1", []byte("x")); err == nil {
		t.Fatalf("expected failure after exhausting retries")
	}
	if inner.calls != 3 { // initial attempt + 2 retries
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingNeverRetriesNotFound(t *testing.T) {
	r := NewRetrying(NewMemoryStore(), DefaultRetryConfig())
	start := time.Now()
	_, err := r.Load(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("not-found result waited on backoff")
	}
}

func TestRetryingStopsOnCanceledContext(t *testing.T) {
	inner := &flaky{MemoryStore: NewMemoryStore(), failures: 100}
	r := NewRetrying(inner, RetryConfig{MaxRetries: 10, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Save(ctx, "h1", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryingUnwrap(t *testing.T) {
	inner := NewMemoryStore()
	r := NewRetrying(inner, DefaultRetryConfig())
	if r.Unwrap() != Store(inner) {
		t.Errorf("Unwrap did not return the inner store")
	}
}
