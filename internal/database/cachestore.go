package database

import (
	"database/sql"
	"time"
)

// CachedResult is one persisted cache row. Payload is the JSON-encoded
// result envelope; freshness bookkeeping lives with the cache manager, the
// store only enforces the hard expiry.
type CachedResult struct {
	Key       string
	Tag       string
	Payload   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ResultCacheStore persists cache entries across restarts
type ResultCacheStore struct {
	db *sql.DB
}

func NewResultCacheStore(db *sql.DB) *ResultCacheStore {
	return &ResultCacheStore{db: db}
}

// Get returns the cached row for a key, or nil if absent or hard-expired.
func (s *ResultCacheStore) Get(key string) (*CachedResult, error) {
	query := `SELECT key, tag, payload, created_at, expires_at
			  FROM result_cache WHERE key = ? AND expires_at > ?`

	var row CachedResult
	err := s.db.QueryRow(query, key, time.Now().UTC()).Scan(
		&row.Key, &row.Tag, &row.Payload, &row.CreatedAt, &row.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Set writes or replaces the row for a key.
func (s *ResultCacheStore) Set(row CachedResult) error {
	query := `INSERT INTO result_cache (key, tag, payload, created_at, expires_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON CONFLICT(key) DO UPDATE SET
				tag = excluded.tag,
				payload = excluded.payload,
				created_at = excluded.created_at,
				expires_at = excluded.expires_at`
	_, err := s.db.Exec(query, row.Key, row.Tag, row.Payload, row.CreatedAt, row.ExpiresAt)
	return err
}

// Delete removes one key.
func (s *ResultCacheStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM result_cache WHERE key = ?`, key)
	return err
}

// DeleteByTag removes every row carrying a tag.
func (s *ResultCacheStore) DeleteByTag(tag string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM result_cache WHERE tag = ?`, tag)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes hard-expired rows and reports how many went.
func (s *ResultCacheStore) DeleteExpired() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM result_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LoadAll returns every live row, for warming the in-memory layer on start.
func (s *ResultCacheStore) LoadAll() ([]CachedResult, error) {
	query := `SELECT key, tag, payload, created_at, expires_at
			  FROM result_cache WHERE expires_at > ?`

	rows, err := s.db.Query(query, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CachedResult
	for rows.Next() {
		var row CachedResult
		if err := rows.Scan(&row.Key, &row.Tag, &row.Payload,
			&row.CreatedAt, &row.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Clear empties the cache table.
func (s *ResultCacheStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM result_cache`)
	return err
}
