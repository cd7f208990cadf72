package governance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// sqliteStore is the durable alternative to fileStore: one row per
// approval, the InvocationRequest stored as a JSON column since its
// shape varies per tool. Picked for deployments that want a real
// queryable ledger (e.g. joining approvals against other local
// tables) instead of rewriting a single JSON document on every
// mutation.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates, on first use) a SQLite-backed
// ApprovalStore at path.
func NewSQLiteStore(path string) (ApprovalStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("governance: open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers
	const schema = `
CREATE TABLE IF NOT EXISTS approvals (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL,
	tool_name    TEXT NOT NULL,
	request_json TEXT NOT NULL,
	status       TEXT NOT NULL,
	reason       TEXT,
	requested_at DATETIME NOT NULL,
	decided_at   DATETIME,
	decided_by   TEXT,
	expires_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("governance: migrate sqlite store: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Create(ctx context.Context, a orchtypes.Approval) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	reqJSON, err := json.Marshal(a.Request)
	if err != nil {
		return fmt.Errorf("governance: marshal request: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO approvals (id, task_id, tool_name, request_json, status, reason, requested_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, a.ToolName, string(reqJSON), string(a.Status), a.Reason, a.RequestedAt, a.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("governance: insert approval: %w", err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (orchtypes.Approval, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, tool_name, request_json, status, reason, requested_at, decided_at, decided_by, expires_at
		FROM approvals WHERE id = ?`, id)
	a, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return orchtypes.Approval{}, ErrNotFound
	}
	if err != nil {
		return orchtypes.Approval{}, fmt.Errorf("governance: get approval: %w", err)
	}
	return a, nil
}

func (s *sqliteStore) List(ctx context.Context, status orchtypes.ApprovalStatus) ([]orchtypes.Approval, error) {
	query := `SELECT id, task_id, tool_name, request_json, status, reason, requested_at, decided_at, decided_by, expires_at FROM approvals`
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = s.db.QueryContext(ctx, query+" WHERE status = ?", string(status))
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("governance: list approvals: %w", err)
	}
	defer rows.Close()

	var out []orchtypes.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("governance: scan approval: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Decide(ctx context.Context, id string, status orchtypes.ApprovalStatus, decidedBy, note string) (orchtypes.Approval, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return orchtypes.Approval{}, err
	}
	if current.Status != orchtypes.ApprovalPending {
		return orchtypes.Approval{}, fmt.Errorf("%w: id=%s status=%s", ErrAlreadyDecided, id, current.Status)
	}
	decidedAt := time.Now()
	reason := current.Reason
	if note != "" {
		reason = note
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE approvals SET status = ?, reason = ?, decided_at = ?, decided_by = ? WHERE id = ?`,
		string(status), reason, decidedAt, decidedBy, id,
	)
	if err != nil {
		return orchtypes.Approval{}, fmt.Errorf("governance: decide approval: %w", err)
	}
	current.Status = status
	current.Reason = reason
	current.DecidedAt = decidedAt
	current.DecidedBy = decidedBy
	return current, nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows, both of which
// implement Scan but share no common interface in database/sql.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row rowScanner) (orchtypes.Approval, error) {
	var (
		a             orchtypes.Approval
		requestJSON   string
		status        string
		decidedAt     sql.NullTime
		decidedBy     sql.NullString
		reason        sql.NullString
	)
	if err := row.Scan(&a.ID, &a.TaskID, &a.ToolName, &requestJSON, &status, &reason, &a.RequestedAt, &decidedAt, &decidedBy, &a.ExpiresAt); err != nil {
		return orchtypes.Approval{}, err
	}
	a.Status = orchtypes.ApprovalStatus(status)
	a.Reason = reason.String
	a.DecidedAt = decidedAt.Time
	a.DecidedBy = decidedBy.String
	if err := json.Unmarshal([]byte(requestJSON), &a.Request); err != nil {
		return orchtypes.Approval{}, fmt.Errorf("unmarshal request: %w", err)
	}
	return a, nil
}

// Close releases the underlying database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}
