package workers

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rastreo/internal/cache"
	"rastreo/internal/carriers"
	"rastreo/internal/database"
)

// Refresher periodically re-queries history entries that are still in
// flight. Terminal shipments are skipped; everything else is refreshed
// concurrently through the cache layer and written back to the history.
type Refresher struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cache    *cache.Manager
	history  *database.HistoryStore
	interval time.Duration
	window   int
	paused   atomic.Bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher over the cache layer and history store.
func NewRefresher(cacheManager *cache.Manager, history *database.HistoryStore, interval time.Duration, window int, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if window <= 0 {
		window = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		ctx:      ctx,
		cancel:   cancel,
		cache:    cacheManager,
		history:  history,
		interval: interval,
		window:   window,
		logger:   logger,
	}
}

// Start begins the background refresh loop
func (r *Refresher) Start() {
	r.logger.Info("Starting refresh scheduler",
		"interval", r.interval,
		"window", r.window)
	r.wg.Add(1)
	go r.loop()
}

// Stop gracefully stops the background loop and waits for an in-progress
// pass to finish.
func (r *Refresher) Stop() {
	r.logger.Info("Stopping refresh scheduler")
	r.cancel()
	r.wg.Wait()
}

// Pause temporarily suspends scheduled passes
func (r *Refresher) Pause() {
	r.paused.Store(true)
	r.logger.Info("Refresh scheduler paused")
}

// Resume resumes scheduled passes
func (r *Refresher) Resume() {
	r.paused.Store(false)
	r.logger.Info("Refresh scheduler resumed")
}

// IsPaused returns true if scheduled passes are suspended
func (r *Refresher) IsPaused() bool {
	return r.paused.Load()
}

func (r *Refresher) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Info("Refresh scheduler stopped")
			return
		case <-ticker.C:
			if r.paused.Load() {
				r.logger.Debug("Skipping refresh pass while paused")
				continue
			}
			r.RefreshRecent(r.ctx)
		}
	}
}

// RefreshRecent runs one refresh pass over the recent history window and
// reports how many entries were re-queried. Failures are logged and
// skipped; they never surface to the interactive path.
func (r *Refresher) RefreshRecent(ctx context.Context) int {
	entries, err := r.history.GetRecent(r.window)
	if err != nil {
		r.logger.Error("failed to read history for refresh", "error", err)
		return 0
	}

	var wg sync.WaitGroup
	refreshed := 0
	for _, entry := range entries {
		if IsTerminal(entry) {
			continue
		}
		refreshed++
		wg.Add(1)
		go func(entry database.HistoryEntry) {
			defer wg.Done()
			r.refreshOne(ctx, entry)
		}(entry)
	}
	wg.Wait()

	if refreshed > 0 {
		r.logger.Info("refresh pass complete", "refreshed", refreshed, "window", r.window)
	}
	return refreshed
}

// refreshOne re-queries a single history entry. A failed query leaves the
// stored entry untouched.
func (r *Refresher) refreshOne(ctx context.Context, entry database.HistoryEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("refresh panic recovered", "id", entry.ID, "panic", rec)
		}
	}()

	id, ok := identifierFor(entry)
	if !ok {
		r.logger.Warn("skipping malformed history entry", "id", entry.ID)
		return
	}

	result := r.cache.Track(ctx, id)
	if !result.Success {
		r.logger.Debug("refresh query failed", "id", entry.ID, "error", result.Error)
		return
	}
	if err := r.history.AddOrUpdate(entry.Carrier, id.Display(), result.Data); err != nil {
		r.logger.Error("failed to write refreshed entry", "id", entry.ID, "error", err)
	}
}

// identifierFor rebuilds the TrackingID recorded in a history entry.
func identifierFor(entry database.HistoryEntry) (carriers.TrackingID, bool) {
	return carriers.ParseIdentifier(entry.Carrier, entry.TrackingNumber)
}

// terminalVocabulary holds the per-carrier "delivered" phrasings. Matching
// is case-insensitive substring, a known approximation: upstream wording
// changes can silently stop registering as terminal.
var terminalVocabulary = map[carriers.Carrier][]string{
	carriers.ViaCargo:        {"entregado", "entregada"},
	carriers.BusPack:         {"entregado", "entrega en sucursal"},
	carriers.Andreani:        {"entregado", "entregamos tu envío"},
	carriers.OCA:             {"entregado", "entregada"},
	carriers.CorreoArgentino: {"entregado", "entregada", "entrega en sucursal"},
}

// IsTerminal reports whether a history entry's shipment has reached a
// delivered state, checking currentStatus with lastStatus as fallback.
func IsTerminal(entry database.HistoryEntry) bool {
	status := entry.LastStatus
	if entry.Data != nil && entry.Data.CurrentStatus != "" {
		status = entry.Data.CurrentStatus
	}
	if status == "" {
		return false
	}
	status = strings.ToLower(status)
	for _, word := range terminalVocabulary[entry.Carrier] {
		if strings.Contains(status, word) {
			return true
		}
	}
	return false
}
