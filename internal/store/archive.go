// Package store provides a SQLite-backed archive of produced results.
// Only engine outputs are archived; input series are never stored.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // register sqlite driver
)

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when a run id is not in the archive.
var ErrNotFound = errors.New("run not found")

// Run is one archived result.
type Run struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"` // analysis, forecast, anomalies, budget, report
	Provider    string          `json:"provider"`
	RangeStart  string          `json:"range_start,omitempty"`
	RangeEnd    string          `json:"range_end,omitempty"`
	Method      string          `json:"method,omitempty"`
	Fingerprint uint64          `json:"fingerprint"`
	Days        int             `json:"days"`
	TotalCost   float64         `json:"total_cost"`
	Headline    string          `json:"headline,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Archive stores runs in SQLite.
type Archive struct {
	db *sql.DB
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "costcast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "costcast")
}

// DefaultPath returns the full path to the archive database.
func DefaultPath() string {
	return filepath.Join(DataDir(), "runs.db")
}

// Open opens or creates the archive database at the given path.
func Open(dbPath string) (*Archive, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores a run, assigning an id and timestamp when they are empty.
// v is marshaled into the payload unless r.Payload is already set.
func (a *Archive) Save(r Run, v any) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Payload == nil {
		data, err := json.Marshal(v)
		if err != nil {
			return r, fmt.Errorf("encoding payload: %w", err)
		}
		r.Payload = data
	}

	_, err := a.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, kind, provider, range_start, range_end, method, fingerprint,
		 days, total_cost, headline, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.Provider, r.RangeStart, r.RangeEnd, r.Method,
		strconv.FormatUint(r.Fingerprint, 16), r.Days, r.TotalCost, r.Headline,
		string(r.Payload), r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return r, fmt.Errorf("saving run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs first, without payloads.
// An empty kind matches every kind; limit <= 0 means no limit.
func (a *Archive) List(kind string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.Query(`SELECT run_id, kind, provider, range_start, range_end, method,
		fingerprint, days, total_cost, headline, created_at
		FROM runs WHERE (? = '' OR kind = ?)
		ORDER BY created_at DESC, run_id LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one run with its payload.
func (a *Archive) Get(id string) (Run, error) {
	row := a.db.QueryRow(`SELECT run_id, kind, provider, range_start, range_end, method,
		fingerprint, days, total_cost, headline, created_at, payload
		FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Prune keeps the newest keep runs and deletes the rest.
func (a *Archive) Prune(keep int) (int64, error) {
	res, err := a.db.Exec(`DELETE FROM runs WHERE run_id NOT IN
		(SELECT run_id FROM runs ORDER BY created_at DESC, run_id LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, withPayload bool) (Run, error) {
	var (
		r                             Run
		start, end, method, headline  sql.NullString
		fingerprint, created, payload string
	)
	dest := []any{&r.ID, &r.Kind, &r.Provider, &start, &end, &method,
		&fingerprint, &r.Days, &r.TotalCost, &headline, &created}
	if withPayload {
		dest = append(dest, &payload)
	}
	if err := s.Scan(dest...); err != nil {
		return Run{}, err
	}
	r.RangeStart = start.String
	r.RangeEnd = end.String
	r.Method = method.String
	r.Headline = headline.String
	r.Fingerprint, _ = strconv.ParseUint(fingerprint, 16, 64)
	r.CreatedAt, _ = time.Parse(timeLayout, created)
	if withPayload {
		r.Payload = json.RawMessage(payload)
	}
	return r, nil
}
