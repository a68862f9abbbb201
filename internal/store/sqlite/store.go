// Package sqlite provides a SQLite-backed session store with the same
// contract as the Redis store: one session per host message, and saves
// guarded by the version the caller loaded.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dyluth/huddle/pkg/activity"
)

//go:embed schema.sql
var schema string

const sessionColumns = `id, type, host_message_id, channel_ref, created_by, closed, closed_by,
	closed_at_ms, version, created_at_ms, updated_at_ms, payload`

// Store persists sessions in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; the version check does the rest.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateSession inserts a new session. activity.ErrSessionExists is
// returned when the id or the host message is already taken.
func (s *Store) CreateSession(ctx context.Context, session *activity.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		string(session.Type),
		session.HostMessageID,
		session.ChannelRef,
		session.CreatedBy,
		session.Closed,
		session.ClosedBy,
		session.ClosedAtMs,
		session.Version,
		session.CreatedAtMs,
		session.UpdatedAtMs,
		payloadText(session),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return activity.ErrSessionExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns one session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*activity.Session, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, activity.Errorf(activity.CodeSessionNotFound, "session %s not found", sessionID)
	}
	return session, err
}

// GetSessionByMessage returns the session hosted by a chat message.
func (s *Store) GetSessionByMessage(ctx context.Context, messageID string) (*activity.Session, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE host_message_id = ?`, messageID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, activity.Errorf(activity.CodeSessionNotFound, "no session hosted by message %s", messageID)
	}
	return session, err
}

// SaveSession replaces a session if and only if the stored version equals
// expectedVersion, and never reopens a closed session. On success
// session.Version is set to expectedVersion+1.
func (s *Store) SaveSession(ctx context.Context, session *activity.Session, expectedVersion int64) error {
	next := session.Clone()
	next.Version = expectedVersion + 1
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE sessions
		    SET closed = ?, closed_by = ?, closed_at_ms = ?, version = ?, updated_at_ms = ?, payload = ?
		  WHERE id = ? AND version = ? AND (closed = 0 OR ? = 1)`,
		next.Closed,
		next.ClosedBy,
		next.ClosedAtMs,
		next.Version,
		next.UpdatedAtMs,
		payloadText(next),
		next.ID,
		expectedVersion,
		next.Closed,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if n == 1 {
		session.Version = next.Version
		return nil
	}

	// Work out why nothing matched.
	var stored int64
	var closed bool
	err = s.sqlDB.QueryRowContext(ctx, `SELECT version, closed FROM sessions WHERE id = ?`, next.ID).Scan(&stored, &closed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return activity.Errorf(activity.CodeSessionNotFound, "session %s not found", next.ID)
	case err != nil:
		return fmt.Errorf("save session: %w", err)
	case stored != expectedVersion:
		return activity.StaleWrite(next.ID, expectedVersion, stored)
	case closed:
		return activity.Errorf(activity.CodeSessionClosed, "session %s is closed and cannot be reopened", next.ID)
	default:
		return activity.StaleWrite(next.ID, expectedVersion, stored)
	}
}

// ListSessions returns every session, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]*activity.Session, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*activity.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ScanSessionIDs returns the ids starting with prefix.
func (s *Store) ScanSessionIDs(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM sessions WHERE substr(id, 1, ?) = ? ORDER BY id`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("scan session ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*activity.Session, error) {
	var (
		session activity.Session
		kind    string
		payload string
	)
	err := row.Scan(
		&session.ID,
		&kind,
		&session.HostMessageID,
		&session.ChannelRef,
		&session.CreatedBy,
		&session.Closed,
		&session.ClosedBy,
		&session.ClosedAtMs,
		&session.Version,
		&session.CreatedAtMs,
		&session.UpdatedAtMs,
		&payload,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	session.Type = activity.Type(kind)
	session.Payload = []byte(payload)
	return &session, nil
}

func payloadText(s *activity.Session) string {
	if len(s.Payload) == 0 {
		return "{}"
	}
	return string(s.Payload)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
