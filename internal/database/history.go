package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"rastreo/internal/carriers"
)

// historyCap bounds the number of retained entries; the oldest by timestamp
// are evicted once exceeded.
const historyCap = 50

// HistoryEntry is one remembered query. ID is the natural key
// "carrier-identifier"; a repeat query updates the row in place.
type HistoryEntry struct {
	ID             string                 `json:"id"`
	Carrier        carriers.Carrier       `json:"carrier"`
	TrackingNumber string                 `json:"trackingNumber"`
	Timestamp      time.Time              `json:"timestamp"`
	LastStatus     string                 `json:"lastStatus"`
	Data           *carriers.TrackingInfo `json:"data"`
}

// HistoryStore handles database operations for the query history
type HistoryStore struct {
	db *sql.DB

	// Serializes read-modify-write cycles per id so a background refresh
	// and an interactive query cannot clobber each other.
	ids keyedMutex
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db, ids: keyedMutex{locks: make(map[string]*keyedLock)}}
}

// keyedMutex serializes callers per key. A key's entry is refcounted and
// dropped once no goroutine holds or waits on it, so the map stays bounded
// by in-flight writers instead of growing with every id ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(id string) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()
	l.mu.Lock()
}

func (k *keyedMutex) Unlock(id string) {
	k.mu.Lock()
	l := k.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()
	l.mu.Unlock()
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// AddOrUpdate writes a successful query result. An existing entry with the
// same id is replaced wholesale with a fresh timestamp; afterwards the store
// is trimmed back to its cap.
func (s *HistoryStore) AddOrUpdate(carrier carriers.Carrier, identifier string, data *carriers.TrackingInfo) error {
	id := string(carrier) + "-" + identifier

	s.ids.Lock(id)
	defer s.ids.Unlock(id)

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode tracking data: %w", err)
	}

	lastStatus := ""
	if data != nil {
		lastStatus = data.CurrentStatus
	}

	query := `INSERT INTO tracking_history (id, carrier, tracking_number, timestamp, last_status, data)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
				timestamp = excluded.timestamp,
				last_status = excluded.last_status,
				data = excluded.data`

	if _, err := s.db.Exec(query, id, string(carrier), identifier, time.Now().UTC(), lastStatus, string(payload)); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}

	trim := `DELETE FROM tracking_history WHERE id NOT IN (
				SELECT id FROM tracking_history ORDER BY timestamp DESC LIMIT ?)`
	if _, err := s.db.Exec(trim, historyCap); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// GetRecent returns the most recently updated entries, newest first.
func (s *HistoryStore) GetRecent(limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}

	query := `SELECT id, carrier, tracking_number, timestamp, last_status, data
			  FROM tracking_history ORDER BY timestamp DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var carrier, payload string
		if err := rows.Scan(&entry.ID, &carrier, &entry.TrackingNumber,
			&entry.Timestamp, &entry.LastStatus, &payload); err != nil {
			return nil, err
		}
		entry.Carrier = carriers.Carrier(carrier)
		if payload != "" {
			var info carriers.TrackingInfo
			if err := json.Unmarshal([]byte(payload), &info); err == nil {
				entry.Data = &info
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns one entry by id, or nil if absent.
func (s *HistoryStore) Get(id string) (*HistoryEntry, error) {
	query := `SELECT id, carrier, tracking_number, timestamp, last_status, data
			  FROM tracking_history WHERE id = ?`

	var entry HistoryEntry
	var carrier, payload string
	err := s.db.QueryRow(query, id).Scan(&entry.ID, &carrier,
		&entry.TrackingNumber, &entry.Timestamp, &entry.LastStatus, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.Carrier = carriers.Carrier(carrier)
	if payload != "" {
		var info carriers.TrackingInfo
		if err := json.Unmarshal([]byte(payload), &info); err == nil {
			entry.Data = &info
		}
	}
	return &entry, nil
}

// Delete removes one entry by id. Deleting an absent id is a no-op.
func (s *HistoryStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM tracking_history WHERE id = ?`, id)
	return err
}

// Clear empties the store.
func (s *HistoryStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM tracking_history`)
	return err
}

// Count returns the number of stored entries.
func (s *HistoryStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tracking_history`).Scan(&n)
	return n, err
}
