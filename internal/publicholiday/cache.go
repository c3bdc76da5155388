package publicholiday

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/focusshift/zeiterfassung/internal/metrics"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"go.uber.org/zap"
)

const defaultCacheTTL = 24 * time.Hour

// Store persists the holidays of one (state, year) pair.
// Get reports ok=false on a miss.
type Store interface {
	Get(ctx context.Context, key string) (holidays []Holiday, ok bool, err error)
	Set(ctx context.Context, key string, holidays []Holiday, ttl time.Duration) error
}

func cacheKey(state FederalState, year int) string {
	return fmt.Sprintf("publicholiday:%s:%d", state, year)
}

// CachedService caches whole years of holidays per state in a Store.
// Store failures are logged and fall through to the wrapped service.
type CachedService struct {
	next   Service
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedService creates a new CachedService
func NewCachedService(next Service, store Store, ttl time.Duration, logger *zap.Logger) *CachedService {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &CachedService{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// GetPublicHolidays returns one calendar per requested state covering [from, toExclusive)
func (cs *CachedService) GetPublicHolidays(ctx context.Context, from, toExclusive time.Time, states []FederalState) (map[FederalState]*Calendar, error) {
	from, toExclusive = dateutil.DateOf(from), dateutil.DateOf(toExclusive)
	collected := make(map[FederalState][]Holiday, len(states))

	for _, year := range yearsBetween(from, toExclusive) {
		var missing []FederalState
		for _, state := range states {
			holidays, ok := cs.lookup(ctx, state, year)
			if !ok {
				missing = append(missing, state)
				continue
			}
			collected[state] = append(collected[state], holidays...)
		}
		if len(missing) == 0 {
			continue
		}

		fetched, err := cs.fetchYear(ctx, year, missing)
		if err != nil {
			return nil, err
		}
		for state, holidays := range fetched {
			collected[state] = append(collected[state], holidays...)
		}
	}

	result := make(map[FederalState]*Calendar, len(states))
	for _, state := range states {
		result[state] = NewCalendar(state, filterRange(collected[state], from, toExclusive))
	}
	return result, nil
}

// Warm loads every (state, year) pair that is not cached yet
func (cs *CachedService) Warm(ctx context.Context, years []int, states []FederalState) error {
	for _, year := range years {
		var missing []FederalState
		for _, state := range states {
			if _, ok := cs.lookup(ctx, state, year); !ok {
				missing = append(missing, state)
			}
		}
		if len(missing) == 0 {
			continue
		}
		if _, err := cs.fetchYear(ctx, year, missing); err != nil {
			return err
		}
	}

	cs.logger.Debug("Holiday cache warmed",
		zap.Ints("years", years),
		zap.Int("states", len(states)))
	return nil
}

func (cs *CachedService) lookup(ctx context.Context, state FederalState, year int) ([]Holiday, bool) {
	key := cacheKey(state, year)
	holidays, ok, err := cs.store.Get(ctx, key)
	if err != nil {
		cs.logger.Warn("Holiday cache read failed", zap.String("key", key), zap.Error(err))
		metrics.ObserveHolidayCache("error")
		return nil, false
	}
	if !ok {
		metrics.ObserveHolidayCache("miss")
		return nil, false
	}
	metrics.ObserveHolidayCache("hit")
	return holidays, true
}

func (cs *CachedService) fetchYear(ctx context.Context, year int, states []FederalState) (map[FederalState][]Holiday, error) {
	start := dateutil.Date(year, time.January, 1)
	end := dateutil.Date(year+1, time.January, 1)

	calendars, err := cs.next.GetPublicHolidays(ctx, start, end, states)
	if err != nil {
		return nil, fmt.Errorf("failed to load public holidays for %d: %w", year, err)
	}

	out := make(map[FederalState][]Holiday, len(states))
	for _, state := range states {
		var holidays []Holiday
		if cal, ok := calendars[state]; ok {
			holidays = cal.Holidays()
		}
		out[state] = holidays

		key := cacheKey(state, year)
		if err := cs.store.Set(ctx, key, holidays, cs.ttl); err != nil {
			cs.logger.Warn("Holiday cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

type memoryEntry struct {
	holidays  []Holiday
	expiresAt time.Time
}

// MemoryStore is an in-process Store with per-entry expiry
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]Holiday, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return append([]Holiday(nil), entry.holidays...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, holidays []Holiday, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		holidays:  append([]Holiday(nil), holidays...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}
