package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process [TokenStore]. Expired entries are invisible to readers and
// removed lazily or by the optional sweeper.
type MemoryStore struct {
	mu        sync.Mutex
	refresh   map[int64]memoryEntry
	blacklist map[string]time.Time
	now       func() time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryStore creates an empty store. now may be nil to use the wall clock.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		refresh:   make(map[int64]memoryEntry),
		blacklist: make(map[string]time.Time),
		now:       now,
		stop:      make(chan struct{}),
	}
}

func (s *MemoryStore) PutRefresh(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.refresh[userID] = memoryEntry{value: token, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetRefresh(ctx context.Context, userID int64) (string, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.refresh[userID]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.After(s.now()) {
		delete(s.refresh, userID)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) DeleteRefresh(ctx context.Context, userID int64) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.refresh, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Blacklist(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.blacklist[tokenID] = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.blacklist[tokenID]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(s.now()) {
		delete(s.blacklist, tokenID)
		return false, nil
	}
	return true, nil
}

// SwapRefresh replaces the record under the store lock when it still equals expected.
func (s *MemoryStore) SwapRefresh(ctx context.Context, userID int64, expected, next string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.refresh[userID]
	if !ok || !entry.expiresAt.After(now) || entry.value != expected {
		return ErrRefreshMismatch
	}
	s.refresh[userID] = memoryEntry{value: next, expiresAt: now.Add(ttl)}
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) (time.Duration, error) {
	return 0, nil
}

// Len reports the number of live refresh records and blacklist entries.
func (s *MemoryStore) Len() (refresh int, blacklisted int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, e := range s.refresh {
		if e.expiresAt.After(now) {
			refresh++
		}
	}
	for _, exp := range s.blacklist {
		if exp.After(now) {
			blacklisted++
		}
	}
	return refresh, blacklisted
}

// StartSweeper removes expired entries every interval until Close is called.
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.refresh {
		if !e.expiresAt.After(now) {
			delete(s.refresh, id)
		}
	}
	for jti, exp := range s.blacklist {
		if !exp.After(now) {
			delete(s.blacklist, jti)
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
