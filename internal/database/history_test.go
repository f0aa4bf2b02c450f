package database

import (
	"fmt"
	"path/filepath"
	"testing"

	"rastreo/internal/carriers"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleInfo(number, status string) *carriers.TrackingInfo {
	info := carriers.NewTrackingInfo(carriers.OCA, number)
	info.CurrentStatus = status
	info.Timeline = []carriers.TimelineEvent{
		{Location: "CABA Centro", Datetime: "2024-03-12 14:30", Status: status},
	}
	return info
}

func TestHistoryAddAndGet(t *testing.T) {
	db := newTestDB(t)
	info := sampleInfo("5079800000002376408", "Entregado")

	if err := db.History.AddOrUpdate(carriers.OCA, "5079800000002376408", info); err != nil {
		t.Fatalf("AddOrUpdate failed: %v", err)
	}

	entry, err := db.History.Get("oca-5079800000002376408")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil {
		t.Fatal("Expected an entry, got nil")
	}
	if entry.Carrier != carriers.OCA {
		t.Errorf("Carrier = %s", entry.Carrier)
	}
	if entry.LastStatus != "Entregado" {
		t.Errorf("LastStatus = %q", entry.LastStatus)
	}
	if entry.Data == nil || entry.Data.TrackingNumber != "5079800000002376408" {
		t.Errorf("Data round-trip failed: %+v", entry.Data)
	}
	if len(entry.Data.Timeline) != 1 || entry.Data.Timeline[0].Location != "CABA Centro" {
		t.Errorf("Timeline round-trip failed: %+v", entry.Data.Timeline)
	}
}

func TestHistoryUpdateInPlace(t *testing.T) {
	db := newTestDB(t)

	if err := db.History.AddOrUpdate(carriers.OCA, "5079800000002376408", sampleInfo("5079800000002376408", "En camino")); err != nil {
		t.Fatalf("AddOrUpdate failed: %v", err)
	}
	first, err := db.History.Get("oca-5079800000002376408")
	if err != nil || first == nil {
		t.Fatalf("Get failed: %v", err)
	}

	if err := db.History.AddOrUpdate(carriers.OCA, "5079800000002376408", sampleInfo("5079800000002376408", "Entregado")); err != nil {
		t.Fatalf("Second AddOrUpdate failed: %v", err)
	}

	count, err := db.History.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected the same id to update in place, got %d rows", count)
	}

	second, err := db.History.Get("oca-5079800000002376408")
	if err != nil || second == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.LastStatus != "Entregado" {
		t.Errorf("Expected updated status, got %q", second.LastStatus)
	}
	if second.Timestamp.Before(first.Timestamp) {
		t.Error("Expected the timestamp to move forward on update")
	}
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < historyCap+1; i++ {
		number := fmt.Sprintf("50798%014d", i)
		if err := db.History.AddOrUpdate(carriers.OCA, number, sampleInfo(number, "En camino")); err != nil {
			t.Fatalf("AddOrUpdate %d failed: %v", i, err)
		}
	}

	count, err := db.History.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != historyCap {
		t.Errorf("Expected the store trimmed to %d, got %d", historyCap, count)
	}

	oldest, err := db.History.Get("oca-" + fmt.Sprintf("50798%014d", 0))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if oldest != nil {
		t.Error("Expected the oldest entry to be evicted")
	}
}

func TestHistoryLockMapDoesNotGrow(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("50798%014d", i)
		if err := db.History.AddOrUpdate(carriers.OCA, id, sampleInfo(id, "En camino")); err != nil {
			t.Fatalf("AddOrUpdate failed: %v", err)
		}
	}
	if n := db.History.ids.size(); n != 0 {
		t.Errorf("Expected no retained per-id locks after writes settled, got %d", n)
	}
}

func TestHistoryGetRecentOrder(t *testing.T) {
	db := newTestDB(t)

	for _, number := range []string{"1111", "2222", "3333"} {
		if err := db.History.AddOrUpdate(carriers.OCA, number, sampleInfo(number, "En camino")); err != nil {
			t.Fatalf("AddOrUpdate failed: %v", err)
		}
	}

	entries, err := db.History.GetRecent(2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].TrackingNumber != "3333" || entries[1].TrackingNumber != "2222" {
		t.Errorf("Expected newest first, got %s then %s",
			entries[0].TrackingNumber, entries[1].TrackingNumber)
	}
}

func TestHistoryDeleteAndClear(t *testing.T) {
	db := newTestDB(t)

	if err := db.History.AddOrUpdate(carriers.OCA, "1111", sampleInfo("1111", "En camino")); err != nil {
		t.Fatalf("AddOrUpdate failed: %v", err)
	}

	if err := db.History.Delete("oca-1111"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// Deleting an absent id is a no-op, not an error.
	if err := db.History.Delete("oca-1111"); err != nil {
		t.Errorf("Expected idempotent delete, got %v", err)
	}

	if err := db.History.AddOrUpdate(carriers.OCA, "2222", sampleInfo("2222", "En camino")); err != nil {
		t.Fatalf("AddOrUpdate failed: %v", err)
	}
	if err := db.History.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	count, err := db.History.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty store after Clear, got %d", count)
	}
}
