package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/alphasolve/alphasolve/pkg/config"
)

// SQLStore persists snapshots in a single table, one row per snapshot
// with the lemma list serialized as JSON. SQLite is the default;
// PostgreSQL and MySQL work through their DSNs.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore opens the database and creates the schema when missing.
func NewSQLStore(cfg config.DatabaseConfig) (*SQLStore, error) {
	cfg.SetDefaults()

	db, err := sql.Open(cfg.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdle)

	s := &SQLStore{db: db, dialect: cfg.Dialect()}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createSchema() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch s.dialect {
	case "postgres":
		serial = "BIGSERIAL PRIMARY KEY"
	case "mysql":
		serial = "BIGINT PRIMARY KEY AUTO_INCREMENT"
	}

	_, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS snapshots (
		id %s,
		session_id VARCHAR(64) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		node VARCHAR(32) NOT NULL,
		status VARCHAR(64) NOT NULL,
		lemmas TEXT NOT NULL
	)`, serial))
	if err != nil {
		return fmt.Errorf("creating snapshot schema: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots (session_id)`)
	if err != nil && s.dialect != "mysql" {
		// MySQL lacks IF NOT EXISTS for indexes; a duplicate index
		// error there is harmless.
		return fmt.Errorf("creating snapshot index: %w", err)
	}
	return nil
}

// placeholder renders the n-th positional parameter for the dialect.
func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Append inserts one snapshot row.
func (s *SQLStore) Append(sessionID string, snap Snapshot) error {
	lemmas, err := json.Marshal(snap.Lemmas)
	if err != nil {
		return fmt.Errorf("encoding lemmas: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT INTO snapshots (session_id, created_at, node, status, lemmas) VALUES (%s, %s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5))
	_, err = s.db.Exec(query, sessionID, snap.Timestamp.UTC(), snap.Node, snap.Status, string(lemmas))
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// List returns a session's snapshots in insertion order.
func (s *SQLStore) List(sessionID string) ([]Snapshot, error) {
	query := fmt.Sprintf(
		"SELECT created_at, node, status, lemmas FROM snapshots WHERE session_id = %s ORDER BY id",
		s.placeholder(1))
	rows, err := s.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var (
			snap      Snapshot
			createdAt time.Time
			lemmas    string
		)
		if err := rows.Scan(&createdAt, &snap.Node, &snap.Status, &lemmas); err != nil {
			return nil, err
		}
		snap.Timestamp = createdAt
		if err := json.Unmarshal([]byte(lemmas), &snap.Lemmas); err != nil {
			return nil, fmt.Errorf("decoding lemmas: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *SQLStore) Close() error { return s.db.Close() }
