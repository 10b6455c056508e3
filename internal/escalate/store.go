package escalate

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS contract_events (
	id               TEXT PRIMARY KEY,
	ts               TEXT NOT NULL,
	event_type       TEXT NOT NULL,
	contract_version TEXT NOT NULL,
	role             TEXT NOT NULL,
	reason           TEXT NOT NULL,
	action           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contract_events_ts ON contract_events(ts);
`

// Store persists contract events in a local sqlite database for later
// review. Implements Sink.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the event database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("event store: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("event store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Send inserts one event. Implements Sink.
func (s *Store) Send(ev Event) error {
	_, err := s.db.Exec(
		`INSERT INTO contract_events (id, ts, event_type, contract_version, role, reason, action)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp, ev.EventType, ev.ContractVersion, ev.Role, ev.Reason, ev.Action,
	)
	if err != nil {
		return fmt.Errorf("event store: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(limit int) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT id, ts, event_type, contract_version, role, reason, action
		 FROM contract_events ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("event store: query: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.EventType, &ev.ContractVersion, &ev.Role, &ev.Reason, &ev.Action); err != nil {
			return nil, fmt.Errorf("event store: scan: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
