package history

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/quota"
)

// Store persists fetched quota snapshots in a SQLite database so the
// CLI and the façade can show usage over time. The detection core never
// touches this; recording is the caller's business.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Entry is one recorded snapshot, flattened for listing plus the full
// snapshot JSON for anything the columns do not carry.
type Entry struct {
	Timestamp        string  `json:"timestamp"`
	PromptAvailable  *int64  `json:"prompt_available,omitempty"`
	PromptMonthly    *int64  `json:"prompt_monthly,omitempty"`
	FlowAvailable    *int64  `json:"flow_available,omitempty"`
	FlowMonthly      *int64  `json:"flow_monthly,omitempty"`
	OverallRemaining float64 `json:"overall_remaining"`
	ModelCount       int     `json:"model_count"`
	Snapshot         string  `json:"snapshot"`
}

// Open creates (or opens) the snapshot database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewIOError("failed to create history directory", err).WithContext("path", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewIOError("failed to open history database", err).WithContext("path", path)
	}
	store := &Store{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		prompt_available INTEGER,
		prompt_monthly INTEGER,
		flow_available INTEGER,
		flow_monthly INTEGER,
		overall_remaining REAL NOT NULL,
		model_count INTEGER NOT NULL,
		snapshot TEXT NOT NULL
	);`)
	if err != nil {
		return errors.NewIOError("failed to initialize history schema", err)
	}
	return nil
}

// Record inserts a snapshot.
func (s *Store) Record(snapshot *quota.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return errors.NewInternalError("failed to marshal snapshot", err)
	}

	var promptAvailable, promptMonthly, flowAvailable, flowMonthly *int64
	if snapshot.PromptCredits != nil {
		promptAvailable = &snapshot.PromptCredits.Available
		promptMonthly = &snapshot.PromptCredits.Monthly
	}
	if snapshot.FlowCredits != nil {
		flowAvailable = &snapshot.FlowCredits.Available
		flowMonthly = &snapshot.FlowCredits.Monthly
	}
	overall := 0.0
	if snapshot.TokenUsage != nil {
		overall = snapshot.TokenUsage.OverallRemainingPercentage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT INTO snapshots
		(timestamp, prompt_available, prompt_monthly, flow_available, flow_monthly, overall_remaining, model_count, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.Timestamp,
		promptAvailable,
		promptMonthly,
		flowAvailable,
		flowMonthly,
		overall,
		len(snapshot.Models),
		string(raw),
	)
	if err != nil {
		return errors.NewIOError("failed to record snapshot", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT timestamp, prompt_available, prompt_monthly,
		flow_available, flow_monthly, overall_remaining, model_count, snapshot
		FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewIOError("failed to query history", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.Timestamp,
			&entry.PromptAvailable,
			&entry.PromptMonthly,
			&entry.FlowAvailable,
			&entry.FlowMonthly,
			&entry.OverallRemaining,
			&entry.ModelCount,
			&entry.Snapshot,
		); err != nil {
			return nil, errors.NewIOError("failed to scan history row", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOError("failed to read history rows", err)
	}
	return entries, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
