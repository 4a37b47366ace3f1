package cooldown

import (
	"context"
	"log"
	"sync"
	"time"
)

// Store decides whether a keyed action may run again. Allow records the
// attempt when it returns true.
type Store interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Key builds the per-member cooldown key.
func Key(guildID, userID string) string {
	return guildID + "-" + userID
}

// MemoryStore keeps cooldown expiries in process memory. Expired entries are
// evicted by Sweep so members who stop talking do not accumulate forever.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		expires: make(map[string]time.Time),
		now:     now,
		stop:    make(chan struct{}),
	}
}

// Allow is false until the window recorded by the last allowed call has
// fully elapsed.
func (s *MemoryStore) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if until, ok := s.expires[key]; ok && !now.After(until) {
		return false, nil
	}
	s.expires[key] = now.Add(window)
	return true, nil
}

// Sweep drops entries whose window has elapsed and returns how many were
// removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, until := range s.expires {
		if now.After(until) {
			delete(s.expires, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

// StartSweeper runs Sweep every interval until Stop.
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Printf("[XP] Swept %d expired cooldown entries", n)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
