package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func sampleEntry() *Entry {
	return &Entry{
		URL:      "http://localhost:10070/bonito/run.cgi/corp_info?corpname=susanne",
		Status:   200,
		Reason:   "OK",
		Format:   "json",
		CachedAt: time.Now().UTC(),
		Body:     []byte(`{"corpname": "susanne"}`),
	}
}

func TestFileStore_PutGet(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	if store.Has(ctx, "aabbccdd00112233") {
		t.Error("empty store reports Has=true")
	}
	if _, err := store.Get(ctx, "aabbccdd00112233"); err != ErrCacheMiss {
		t.Errorf("Get on empty store = %v, want ErrCacheMiss", err)
	}

	entry := sampleEntry()
	if err := store.Put(ctx, "aabbccdd00112233", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if !store.Has(ctx, "aabbccdd00112233") {
		t.Error("Has=false after Put")
	}
	got, err := store.Get(ctx, "aabbccdd00112233")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Body) != string(entry.Body) {
		t.Errorf("body = %q, want %q", got.Body, entry.Body)
	}
	if got.URL != entry.URL || got.Status != entry.Status || got.Format != entry.Format {
		t.Errorf("metadata mismatch: %+v", got)
	}
}

func TestFileStore_BodyExtensionFollowsFormat(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	entry := sampleEntry()
	entry.Format = "csv"
	entry.Body = []byte("word,frq\nsun,64\n")
	if err := store.Put(ctx, "ffee00112233", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.Dir(), "ffee00112233.csv")); err != nil {
		t.Errorf("expected csv body file: %v", err)
	}
	got, err := store.Get(ctx, "ffee00112233")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Format != "csv" {
		t.Errorf("Format = %q, want csv", got.Format)
	}
}

func TestFileStore_OverwriteWholesale(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	first := sampleEntry()
	if err := store.Put(ctx, "0011223344556677", first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	second := sampleEntry()
	second.Body = []byte(`{"corpname": "susanne", "refreshed": true}`)
	if err := store.Put(ctx, "0011223344556677", second); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "0011223344556677")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Body) != string(second.Body) {
		t.Errorf("overwrite not wholesale: %q", got.Body)
	}
}

func TestFileStore_CorruptMetaIsMiss(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "deadbeef00000000", sampleEntry()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), "deadbeef00000000.meta.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, "deadbeef00000000"); err != ErrCacheMiss {
		t.Errorf("corrupt metadata: Get = %v, want ErrCacheMiss", err)
	}
	// stale artifacts swept so the next run re-dispatches cleanly
	if store.Has(ctx, "deadbeef00000000") {
		t.Error("corrupt entry still reported present")
	}
}

func TestFileStore_MissingBodyIsMiss(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "cafe000000000000", sampleEntry()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.Remove(filepath.Join(store.Dir(), "cafe000000000000.json")); err != nil {
		t.Fatal(err)
	}

	if store.Has(ctx, "cafe000000000000") {
		t.Error("half-materialized entry reported present")
	}
	if _, err := store.Get(ctx, "cafe000000000000"); err != ErrCacheMiss {
		t.Errorf("missing body: Get = %v, want ErrCacheMiss", err)
	}
}

func TestFileStore_Clear(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	for _, fp := range []string{"1111111111111111", "2222222222222222"} {
		if err := store.Put(ctx, fp, sampleEntry()); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if store.Has(ctx, "1111111111111111") || store.Has(ctx, "2222222222222222") {
		t.Error("entries survive Clear")
	}
	// directory still usable
	if err := store.Put(ctx, "3333333333333333", sampleEntry()); err != nil {
		t.Errorf("Put after Clear: %v", err)
	}
}

func TestFileStore_ConcurrentSameFingerprint(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	// content-equivalent writers converge; last write wins is correct
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- store.Put(ctx, "abcdef0123456789", sampleEntry())
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Put: %v", err)
		}
	}

	got, err := store.Get(ctx, "abcdef0123456789")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Body) != string(sampleEntry().Body) {
		t.Errorf("converged body = %q", got.Body)
	}
}

func TestFileStore_PutCountsBytesWritten(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	before := promtestutil.ToFloat64(CacheBytesWritten.WithLabelValues("file"))
	if err := store.Put(ctx, "4444444444444444", sampleEntry()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	after := promtestutil.ToFloat64(CacheBytesWritten.WithLabelValues("file"))

	if delta := after - before; delta < float64(len(sampleEntry().Body)) {
		t.Errorf("bytes written counter grew by %v, want at least the body size %d", delta, len(sampleEntry().Body))
	}
}
