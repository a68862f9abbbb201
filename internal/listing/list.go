// Package listing renders sessions for operators: filtered tables, JSONL
// streams and single-session detail.
package listing

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/huddle/pkg/activity"
)

// OutputFormat specifies how to format the session list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with a payload summary
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete sessions as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Lister lists every session, oldest first. Implemented by both stores.
type Lister interface {
	ListSessions(ctx context.Context) ([]*activity.Session, error)
}

// Getter reads one session.
type Getter interface {
	GetSession(ctx context.Context, sessionID string) (*activity.Session, error)
}

// List writes the sessions matching filters to w.
func List(ctx context.Context, lister Lister, instanceName string, format OutputFormat, filters *Criteria, w io.Writer) error {
	all, err := lister.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []*activity.Session
	for _, s := range all {
		if filters != nil && !filters.Matches(s) {
			continue
		}
		sessions = append(sessions, s)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, sessions, instanceName)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, sessions); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// Get writes one session as pretty-printed JSON.
func Get(ctx context.Context, getter Getter, sessionID string, w io.Writer) error {
	session, err := getter.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := FormatSingleJSON(w, session); err != nil {
		return fmt.Errorf("failed to format session: %w", err)
	}
	return nil
}
