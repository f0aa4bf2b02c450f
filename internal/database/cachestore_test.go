package database

import (
	"testing"
	"time"
)

func liveRow(key, tag string) CachedResult {
	now := time.Now().UTC()
	return CachedResult{
		Key:       key,
		Tag:       tag,
		Payload:   `{"success":true}`,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestCacheSetAndGet(t *testing.T) {
	db := newTestDB(t)

	row := liveRow("oca-1111", "oca-1111")
	if err := db.ResultCache.Set(row); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := db.ResultCache.Get("oca-1111")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a row, got nil")
	}
	if got.Payload != row.Payload || got.Tag != row.Tag {
		t.Errorf("Row round-trip failed: %+v", got)
	}

	missing, err := db.ResultCache.Get("oca-9999")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for an absent key")
	}
}

func TestCacheSetReplaces(t *testing.T) {
	db := newTestDB(t)

	if err := db.ResultCache.Set(liveRow("oca-1111", "oca-1111")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	updated := liveRow("oca-1111", "oca-1111")
	updated.Payload = `{"success":false,"error":"x"}`
	if err := db.ResultCache.Set(updated); err != nil {
		t.Fatalf("Second Set failed: %v", err)
	}

	got, err := db.ResultCache.Get("oca-1111")
	if err != nil || got == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Payload != updated.Payload {
		t.Errorf("Expected the replaced payload, got %q", got.Payload)
	}
}

func TestCacheHardExpiry(t *testing.T) {
	db := newTestDB(t)

	expired := liveRow("oca-1111", "oca-1111")
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if err := db.ResultCache.Set(expired); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := db.ResultCache.Get("oca-1111")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("Expected hard-expired row to be invisible")
	}

	n, err := db.ResultCache.DeleteExpired()
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 expired row removed, got %d", n)
	}
}

func TestCacheDeleteByTag(t *testing.T) {
	db := newTestDB(t)

	for _, key := range []string{"oca-1111", "oca-2222"} {
		if err := db.ResultCache.Set(liveRow(key, "batch-a")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := db.ResultCache.Set(liveRow("oca-3333", "batch-b")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	n, err := db.ResultCache.DeleteByTag("batch-a")
	if err != nil {
		t.Fatalf("DeleteByTag failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows removed, got %d", n)
	}

	survivor, err := db.ResultCache.Get("oca-3333")
	if err != nil || survivor == nil {
		t.Errorf("Expected the other tag to survive: %v %v", survivor, err)
	}
}

func TestCacheLoadAllSkipsExpired(t *testing.T) {
	db := newTestDB(t)

	if err := db.ResultCache.Set(liveRow("oca-1111", "a")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	dead := liveRow("oca-2222", "b")
	dead.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if err := db.ResultCache.Set(dead); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	rows, err := db.ResultCache.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Key != "oca-1111" {
		t.Errorf("Expected only the live row, got %+v", rows)
	}
}

func TestCacheClear(t *testing.T) {
	db := newTestDB(t)

	if err := db.ResultCache.Set(liveRow("oca-1111", "a")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := db.ResultCache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, err := db.ResultCache.Get("oca-1111")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("Expected empty cache after Clear")
	}
}
