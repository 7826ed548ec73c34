package cache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) (*ContentCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	contentCache, err := NewContentCache(server.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() {
		_ = contentCache.Close()
	})
	return contentCache, server
}

func TestContentCacheRoundTrip(t *testing.T) {
	contentCache, _ := newTestCache(t)
	ctx := context.Background()

	data := []byte("cached image bytes")
	contentCache.Set(ctx, "id-1", data)

	got, ok := contentCache.Get(ctx, "id-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("cached bytes differ from stored bytes")
	}
}

func TestContentCacheMiss(t *testing.T) {
	contentCache, _ := newTestCache(t)

	if _, ok := contentCache.Get(context.Background(), "unknown"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestContentCacheInvalidate(t *testing.T) {
	contentCache, _ := newTestCache(t)
	ctx := context.Background()

	contentCache.Set(ctx, "id-1", []byte("stale"))
	contentCache.Invalidate(ctx, "id-1")

	if _, ok := contentCache.Get(ctx, "id-1"); ok {
		t.Fatal("expected entry to be gone after invalidation")
	}
}

func TestContentCacheEntriesExpire(t *testing.T) {
	server := miniredis.RunT(t)
	contentCache, err := NewContentCache(server.Addr(), time.Second)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() {
		_ = contentCache.Close()
	})
	ctx := context.Background()

	contentCache.Set(ctx, "id-1", []byte("short lived"))
	server.FastForward(2 * time.Second)

	if _, ok := contentCache.Get(ctx, "id-1"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestNewContentCacheUnreachable(t *testing.T) {
	if _, err := NewContentCache("127.0.0.1:1", time.Minute); err == nil {
		t.Fatal("expected connection error")
	}
}
