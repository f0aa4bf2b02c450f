package workers

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"rastreo/internal/cache"
	"rastreo/internal/carriers"
	"rastreo/internal/database"
)

type countingTracker struct {
	calls  atomic.Int32
	result func(id carriers.TrackingID) carriers.ScraperResult
}

func (c *countingTracker) Track(ctx context.Context, id carriers.TrackingID) carriers.ScraperResult {
	c.calls.Add(1)
	return c.result(id)
}

func newRefresherFixture(t *testing.T, tracker cache.Tracker) (*Refresher, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	manager := cache.NewManager(tracker, nil, cache.DefaultThresholds(), nil)
	t.Cleanup(manager.Stop)

	return NewRefresher(manager, db.History, time.Hour, 10, nil), db
}

func historyEntry(t *testing.T, db *database.DB, number, status string) {
	t.Helper()
	info := carriers.NewTrackingInfo(carriers.OCA, number)
	info.CurrentStatus = status
	if err := db.History.AddOrUpdate(carriers.OCA, number, info); err != nil {
		t.Fatalf("AddOrUpdate failed: %v", err)
	}
}

func TestRefreshRecent_SkipsTerminalEntries(t *testing.T) {
	tracker := &countingTracker{result: func(id carriers.TrackingID) carriers.ScraperResult {
		info := carriers.NewTrackingInfo(carriers.OCA, id.Number)
		info.CurrentStatus = "En distribucion"
		return carriers.Successful(info)
	}}
	refresher, db := newRefresherFixture(t, tracker)

	historyEntry(t, db, "1001", "En camino")
	historyEntry(t, db, "1002", "Entregado")
	historyEntry(t, db, "1003", "En poder del distribuidor")
	historyEntry(t, db, "1004", "Entregada en sucursal")
	historyEntry(t, db, "1005", "Admitido")

	refreshed := refresher.RefreshRecent(context.Background())
	if refreshed != 3 {
		t.Errorf("Expected 3 entries refreshed, got %d", refreshed)
	}
	if got := tracker.calls.Load(); got != 3 {
		t.Errorf("Expected 3 upstream queries, got %d", got)
	}

	// Refreshed entries carry the new status; terminal ones are untouched.
	entry, err := db.History.Get("oca-1001")
	if err != nil || entry == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.LastStatus != "En distribucion" {
		t.Errorf("Expected refreshed status, got %q", entry.LastStatus)
	}

	terminal, err := db.History.Get("oca-1002")
	if err != nil || terminal == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if terminal.LastStatus != "Entregado" {
		t.Errorf("Expected terminal entry untouched, got %q", terminal.LastStatus)
	}
}

func TestRefreshRecent_FailedQueryLeavesEntryUntouched(t *testing.T) {
	tracker := &countingTracker{result: func(id carriers.TrackingID) carriers.ScraperResult {
		return carriers.Failure("upstream down")
	}}
	refresher, db := newRefresherFixture(t, tracker)

	historyEntry(t, db, "1001", "En camino")
	before, err := db.History.Get("oca-1001")
	if err != nil || before == nil {
		t.Fatalf("Get failed: %v", err)
	}

	refreshed := refresher.RefreshRecent(context.Background())
	if refreshed != 1 {
		t.Errorf("Expected the entry to be attempted, got %d", refreshed)
	}

	after, err := db.History.Get("oca-1001")
	if err != nil || after == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if after.LastStatus != "En camino" {
		t.Errorf("Expected entry untouched after failure, got %q", after.LastStatus)
	}
	if !after.Timestamp.Equal(before.Timestamp) {
		t.Error("Expected timestamp untouched after failure")
	}
}

func TestRefreshRecent_HonorsWindow(t *testing.T) {
	tracker := &countingTracker{result: func(id carriers.TrackingID) carriers.ScraperResult {
		info := carriers.NewTrackingInfo(carriers.OCA, id.Number)
		info.CurrentStatus = "En camino"
		return carriers.Successful(info)
	}}
	refresher, db := newRefresherFixture(t, tracker)
	refresher.window = 2

	for i := 0; i < 5; i++ {
		historyEntry(t, db, fmt.Sprintf("200%d", i), "En camino")
	}

	refreshed := refresher.RefreshRecent(context.Background())
	if refreshed != 2 {
		t.Errorf("Expected the pass limited to the window, got %d", refreshed)
	}
}

func TestPauseResume(t *testing.T) {
	tracker := &countingTracker{result: func(id carriers.TrackingID) carriers.ScraperResult {
		return carriers.Failure("unused")
	}}
	refresher, _ := newRefresherFixture(t, tracker)

	if refresher.IsPaused() {
		t.Error("Expected a new refresher to start unpaused")
	}
	refresher.Pause()
	if !refresher.IsPaused() {
		t.Error("Expected paused after Pause")
	}
	refresher.Resume()
	if refresher.IsPaused() {
		t.Error("Expected unpaused after Resume")
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name    string
		carrier carriers.Carrier
		status  string
		want    bool
	}{
		{"delivered", carriers.OCA, "Entregado", true},
		{"delivered feminine", carriers.OCA, "Entregada", true},
		{"delivered inside longer text", carriers.ViaCargo, "Envío ENTREGADO al destinatario", true},
		{"in transit", carriers.OCA, "En camino", false},
		{"empty", carriers.OCA, "", false},
		{"branch pickup", carriers.CorreoArgentino, "Entrega en sucursal", true},
		{"andreani phrasing", carriers.Andreani, "Entregamos tu envío", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := database.HistoryEntry{Carrier: tt.carrier, LastStatus: tt.status}
			if got := IsTerminal(entry); got != tt.want {
				t.Errorf("IsTerminal(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
