// Package store persists solidified genes and evolution events in SQLite.
// It is the durable collaborator on the far side of the pipeline: the loop
// hands it GeneData records keyed by their content-addressed ID and an event
// row per run. Duplicate gene content is de-duplicated by ID; name
// uniqueness is enforced here, not in the pipeline.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"gep/internal/evolution"
	"gep/internal/logging"
)

// Store manages the gene database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Event is one recorded pipeline run.
type Event struct {
	ID        string
	EventType string
	Payload   string
	Success   bool
	CreatedAt time.Time
}

// NewStore creates or opens the gene store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS genes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		implementation TEXT,
		prompt_template TEXT,
		status TEXT NOT NULL,
		success_rate REAL NOT NULL,
		context_tags TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		payload TEXT,
		success INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_genes_status ON genes(status);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveGene inserts a gene. Inserting the same content-addressed ID twice is
// a no-op (inserted=false); a distinct gene reusing an existing name is an
// error.
func (s *Store) SaveGene(gene *evolution.GeneData) (inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := json.Marshal(gene.ContextTags)
	if err != nil {
		return false, fmt.Errorf("failed to encode tags: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO genes (id, name, description, implementation, prompt_template, status, success_rate, context_tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		gene.ID, gene.Name, gene.Description, gene.Implementation, gene.PromptTemplate,
		string(gene.Status), gene.SuccessRate, string(tags), time.Now().UTC(),
	)
	if err != nil {
		logging.StoreError("failed to save gene %s: %v", gene.ID, err)
		return false, fmt.Errorf("failed to save gene: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		logging.StoreDebug("gene %s already present, skipped", gene.ID)
		return false, nil
	}
	logging.Store("saved gene %s (%s)", gene.ID, gene.Name)
	return true, nil
}

// GetGene fetches a gene by ID. Returns sql.ErrNoRows when absent.
func (s *Store) GetGene(id string) (*evolution.GeneData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, description, implementation, prompt_template, status, success_rate, context_tags
		FROM genes WHERE id = ?`, id)
	return scanGene(row)
}

// ListGenes returns all stored genes, newest first.
func (s *Store) ListGenes() ([]*evolution.GeneData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, description, implementation, prompt_template, status, success_rate, context_tags
		FROM genes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list genes: %w", err)
	}
	defer rows.Close()

	var genes []*evolution.GeneData
	for rows.Next() {
		gene, err := scanGene(rows)
		if err != nil {
			return nil, err
		}
		genes = append(genes, gene)
	}
	return genes, rows.Err()
}

// DeleteGene removes a gene by ID.
func (s *Store) DeleteGene(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM genes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gene: %w", err)
	}
	return nil
}

// RecordEvent stores one pipeline run outcome with a JSON payload.
func (s *Store) RecordEvent(eventType string, payload any, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO events (id, event_type, payload, success, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), eventType, string(data), success, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events, newest first.
func (s *Store) ListEvents(limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, event_type, payload, success, created_at
		FROM events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.Payload, &ev.Success, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGene(row rowScanner) (*evolution.GeneData, error) {
	var gene evolution.GeneData
	var status, tags string
	if err := row.Scan(&gene.ID, &gene.Name, &gene.Description, &gene.Implementation,
		&gene.PromptTemplate, &status, &gene.SuccessRate, &tags); err != nil {
		return nil, err
	}
	gene.Status = evolution.GeneStatus(status)
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &gene.ContextTags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	return &gene, nil
}
