package vm

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/chazu/lattice/compiler"
)

// ErrRecordNotFound indicates the requested procedure record doesn't exist.
var ErrRecordNotFound = errors.New("procedure record not found")

// ProcedureStore persists procedure records in SQLite, keyed by content
// hash, so a fresh session can recognize previously compiled bodies.
type ProcedureStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// OpenProcedureStore opens (creating if needed) the store at dbPath.
func OpenProcedureStore(dbPath string) (*ProcedureStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS procedures (
		hash TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &ProcedureStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (ps *ProcedureStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

// Save persists a procedure's wire record, replacing any prior record with
// the same hash.
func (ps *ProcedureStore) Save(p *compiler.Procedure) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	data, err := MarshalProcedureRecord(RecordOf(p))
	if err != nil {
		return fmt.Errorf("encoding procedure %s: %w", p.Name, err)
	}
	_, err = ps.db.Exec(
		`INSERT OR REPLACE INTO procedures (hash, name, data) VALUES (?, ?, ?)`,
		hex.EncodeToString(p.Hash[:]), p.Name, data,
	)
	if err != nil {
		return fmt.Errorf("saving procedure %s: %w", p.Name, err)
	}
	return nil
}

// Load retrieves the record for a content hash.
func (ps *ProcedureStore) Load(hash [32]byte) (*ProcedureRecord, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var data []byte
	err := ps.db.QueryRow(
		`SELECT data FROM procedures WHERE hash = ?`,
		hex.EncodeToString(hash[:]),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading procedure %x: %w", hash[:4], err)
	}
	return UnmarshalProcedureRecord(data)
}

// Has reports whether a record exists for the hash.
func (ps *ProcedureStore) Has(hash [32]byte) (bool, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var one int
	err := ps.db.QueryRow(
		`SELECT 1 FROM procedures WHERE hash = ?`,
		hex.EncodeToString(hash[:]),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Hashes lists every stored content hash.
func (ps *ProcedureStore) Hashes() ([][32]byte, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	rows, err := ps.db.Query(`SELECT hash FROM procedures ORDER BY hash`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][32]byte
	for rows.Next() {
		var hx string
		if err := rows.Scan(&hx); err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(hx)
		if err != nil || len(raw) != 32 {
			continue
		}
		var h [32]byte
		copy(h[:], raw)
		out = append(out, h)
	}
	return out, rows.Err()
}
