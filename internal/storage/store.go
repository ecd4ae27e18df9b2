package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/raine/pup-ancestry-bot/internal/breed"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// AnalysisCache stores breed analysis results keyed by a hash of the request.
type AnalysisCache interface {
	GetAnalysis(cacheKey string) (*breed.AnalysisResult, error)
	SetAnalysis(cacheKey string, result *breed.AnalysisResult) error
	Close() error
}

// SQLiteStore implements AnalysisCache using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath.
// ":memory:" gives a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dbPath", dbPath).Msg("failed to restrict database permissions")
		}
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS analysis_cache (
		cache_key TEXT PRIMARY KEY,
		result_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create analysis_cache table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAnalysis retrieves a cached analysis result.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetAnalysis(cacheKey string) (*breed.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resultJSON string
	err := s.db.QueryRow(
		"SELECT result_json FROM analysis_cache WHERE cache_key = ?",
		cacheKey,
	).Scan(&resultJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}

	var result breed.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	return &result, nil
}

// SetAnalysis stores an analysis result in the cache.
func (s *SQLiteStore) SetAnalysis(cacheKey string, result *breed.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO analysis_cache (cache_key, result_json)
		VALUES (?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			result_json = excluded.result_json,
			created_at = CURRENT_TIMESTAMP
	`, cacheKey, string(data))
	if err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

// PruneAnalyses deletes cache entries older than maxAge and returns how many were removed.
func (s *SQLiteStore) PruneAnalyses(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge).UTC().Format("2006-01-02 15:04:05")
	res, err := s.db.Exec("DELETE FROM analysis_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analysis cache: %w", err)
	}
	return res.RowsAffected()
}
