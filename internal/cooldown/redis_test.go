package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStoreAllow(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	key := Key("g", "u")

	ok, err := s.Allow(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Allow() = %v, %v; want true", ok, err)
	}
	if !mr.Exists("xp:cooldown:" + key) {
		t.Error("cooldown key was not written")
	}
	if ttl := mr.TTL("xp:cooldown:" + key); ttl != time.Minute {
		t.Errorf("TTL = %v, want %v", ttl, time.Minute)
	}

	if ok, _ := s.Allow(ctx, key, time.Minute); ok {
		t.Error("second Allow() inside the window should be denied")
	}
	if ok, _ := s.Allow(ctx, Key("g", "other"), time.Minute); !ok {
		t.Error("another member should not share the cooldown")
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := s.Allow(ctx, key, time.Minute); !ok {
		t.Error("Allow() after the window expired should pass")
	}
}

func TestRedisStoreSharedBetweenStores(t *testing.T) {
	first, mr := newTestRedisStore(t)
	second, err := NewRedisStore(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer second.Close()
	ctx := context.Background()

	if ok, _ := first.Allow(ctx, Key("g", "u"), time.Hour); !ok {
		t.Fatal("first process should be allowed")
	}
	if ok, _ := second.Allow(ctx, Key("g", "u"), time.Hour); ok {
		t.Error("second process must see the shared cooldown")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.Close()

	if _, err := s.Allow(context.Background(), Key("g", "u"), time.Minute); err == nil {
		t.Error("Allow() with Redis down should return an error")
	}
}

func TestNewRedisStoreBadAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisStore(addr, "", 0); err == nil {
		t.Error("NewRedisStore() against a closed server should fail")
	}
}
