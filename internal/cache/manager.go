package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"rastreo/internal/carriers"
	"rastreo/internal/database"
)

// Tracker runs one tracking query end to end. Satisfied by the query
// service; narrowed to an interface so tests can substitute a fake.
type Tracker interface {
	Track(ctx context.Context, id carriers.TrackingID) carriers.ScraperResult
}

// Freshness thresholds. A cached value younger than Stale is served as-is.
// Between Stale and Revalidate it is still served without a refetch. Past
// Revalidate it is served while a background refetch replaces it. Past
// Expire the refetch is synchronous.
type Thresholds struct {
	Stale      time.Duration
	Revalidate time.Duration
	Expire     time.Duration
}

// DefaultThresholds returns the production freshness windows.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Stale:      5 * time.Minute,
		Revalidate: 4 * time.Hour,
		Expire:     6 * time.Hour,
	}
}

// entry is one in-memory cache slot.
type entry struct {
	result    carriers.ScraperResult
	tag       string
	createdAt time.Time
}

// Manager memoizes query results per carrier+identifier with layered
// in-memory and persistent storage. Headless carriers bypass the cache
// entirely; their queries always go straight to the tracker.
type Manager struct {
	tracker    Tracker
	store      *database.ResultCacheStore
	thresholds Thresholds
	logger     *slog.Logger

	memory sync.Map // map[string]*entry

	// Guards against piling up concurrent background refetches per key.
	inflight sync.Map // map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a cache manager in front of a tracker. A nil store
// keeps the cache memory-only.
func NewManager(tracker Tracker, store *database.ResultCacheStore, thresholds Thresholds, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		tracker:    tracker,
		store:      store,
		thresholds: thresholds,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	if store != nil {
		if err := m.loadFromStore(); err != nil {
			logger.Warn("failed to warm cache from database", "error", err)
		}
	}

	m.wg.Add(1)
	go m.cleanupLoop()
	return m
}

// Track returns a result for the identifier, from cache when permitted.
func (m *Manager) Track(ctx context.Context, id carriers.TrackingID) carriers.ScraperResult {
	id = id.Normalize()

	// Browser-driven carriers are never cached. Sharing memoized browser
	// sessions across requests is unsafe, so those always hit upstream.
	if carriers.RequiresHeadless(id.Carrier) {
		return m.tracker.Track(ctx, id)
	}

	key := id.Key()
	if e := m.lookup(key); e != nil {
		age := time.Since(e.createdAt)
		switch {
		case age < m.thresholds.Revalidate:
			return e.result
		case age < m.thresholds.Expire:
			m.refreshAsync(id, key)
			return e.result
		}
		// Hard-expired, fall through to a synchronous fetch.
	}

	result := m.tracker.Track(ctx, id)
	if result.Success {
		m.put(key, key, result)
	}
	return result
}

// Freshness classes reported by State.
const (
	StateMiss       = "miss"
	StateFresh      = "fresh"
	StateStale      = "stale"
	StateRevalidate = "revalidate"
)

// State reports the freshness class of a key without touching upstream.
func (m *Manager) State(key string) string {
	e := m.lookup(key)
	if e == nil {
		return StateMiss
	}
	age := time.Since(e.createdAt)
	switch {
	case age < m.thresholds.Stale:
		return StateFresh
	case age < m.thresholds.Revalidate:
		return StateStale
	default:
		return StateRevalidate
	}
}

// Invalidate drops every cached entry carrying the tag. The tag for a
// single shipment is its "carrier-identifier" key.
func (m *Manager) Invalidate(tag string) {
	m.memory.Range(func(k, v any) bool {
		if v.(*entry).tag == tag {
			m.memory.Delete(k)
		}
		return true
	})
	if m.store != nil {
		if _, err := m.store.DeleteByTag(tag); err != nil {
			m.logger.Warn("failed to invalidate persistent cache", "tag", tag, "error", err)
		}
	}
}

// Clear drops everything.
func (m *Manager) Clear() {
	m.memory.Range(func(k, _ any) bool {
		m.memory.Delete(k)
		return true
	})
	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			m.logger.Warn("failed to clear persistent cache", "error", err)
		}
	}
}

// Stop terminates the cleanup goroutine and waits for in-flight background
// refetches to finish.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// lookup returns the live slot for a key, consulting memory then the
// persistent store. Hard-expired slots are evicted on sight.
func (m *Manager) lookup(key string) *entry {
	if v, ok := m.memory.Load(key); ok {
		e := v.(*entry)
		if time.Since(e.createdAt) < m.thresholds.Expire {
			return e
		}
		m.memory.Delete(key)
	}

	if m.store == nil {
		return nil
	}
	row, err := m.store.Get(key)
	if err != nil {
		m.logger.Warn("persistent cache read failed", "key", key, "error", err)
		return nil
	}
	if row == nil {
		return nil
	}
	var result carriers.ScraperResult
	if err := json.Unmarshal([]byte(row.Payload), &result); err != nil {
		m.logger.Warn("dropping undecodable cache row", "key", key, "error", err)
		_ = m.store.Delete(key)
		return nil
	}
	e := &entry{result: result, tag: row.Tag, createdAt: row.CreatedAt}
	m.memory.Store(key, e)
	return e
}

// put writes a slot to both layers.
func (m *Manager) put(key, tag string, result carriers.ScraperResult) {
	now := time.Now().UTC()
	m.memory.Store(key, &entry{result: result, tag: tag, createdAt: now})

	if m.store == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		m.logger.Warn("failed to encode cache payload", "key", key, "error", err)
		return
	}
	row := database.CachedResult{
		Key:       key,
		Tag:       tag,
		Payload:   string(payload),
		CreatedAt: now,
		ExpiresAt: now.Add(m.thresholds.Expire),
	}
	if err := m.store.Set(row); err != nil {
		m.logger.Warn("failed to persist cache entry", "key", key, "error", err)
	}
}

// refreshAsync refetches a key in the background, at most once at a time.
func (m *Manager) refreshAsync(id carriers.TrackingID, key string) {
	if _, loaded := m.inflight.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.inflight.Delete(key)

		ctx, cancel := context.WithTimeout(m.ctx, time.Minute)
		defer cancel()

		result := m.tracker.Track(ctx, id)
		if result.Success {
			m.put(key, key, result)
		} else {
			m.logger.Debug("background revalidation failed", "key", key, "error", result.Error)
		}
	}()
}

// loadFromStore warms memory from the persistent layer on start.
func (m *Manager) loadFromStore() error {
	rows, err := m.store.LoadAll()
	if err != nil {
		return err
	}
	for _, row := range rows {
		var result carriers.ScraperResult
		if err := json.Unmarshal([]byte(row.Payload), &result); err != nil {
			continue
		}
		m.memory.Store(row.Key, &entry{result: result, tag: row.Tag, createdAt: row.CreatedAt})
	}
	m.logger.Info("cache warmed from database", "entries", len(rows))
	return nil
}

// cleanupLoop evicts hard-expired slots periodically.
func (m *Manager) cleanupLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Manager) cleanup() {
	removed := 0
	m.memory.Range(func(k, v any) bool {
		if time.Since(v.(*entry).createdAt) >= m.thresholds.Expire {
			m.memory.Delete(k)
			removed++
		}
		return true
	})
	if m.store != nil {
		if n, err := m.store.DeleteExpired(); err == nil {
			removed += int(n)
		}
	}
	if removed > 0 {
		m.logger.Debug("cache cleanup", "removed", removed)
	}
}
