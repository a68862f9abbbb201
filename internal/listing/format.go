package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/huddle/pkg/activity"
)

// FormatTable writes sessions as a table with columns ID, VER, TYPE,
// CHANNEL, BY, STATE, AGE and CONTENT. Returns the number of rows.
func FormatTable(w io.Writer, sessions []*activity.Session, instanceName string) int {
	if len(sessions) == 0 {
		fmt.Fprintf(w, "No sessions found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Sessions for instance '%s':\n\n", instanceName)

	const row = "%-10s %-5s %-16s %-12s %-12s %-7s %-8s %s\n"
	fmt.Fprintf(w, row, "ID", "VER", "TYPE", "CHANNEL", "BY", "STATE", "AGE", "CONTENT")
	fmt.Fprintf(w, row, "----------", "-----", "----------------", "------------", "------------", "-------", "--------", "------------------------------")

	for _, s := range sessions {
		fmt.Fprintf(w, row,
			formatID(s.ID),
			fmt.Sprintf("v%d", s.Version),
			truncate(string(s.Type), 16),
			truncate(s.ChannelRef, 12),
			truncate(s.CreatedBy, 12),
			formatState(s.Closed),
			formatAge(s.CreatedAtMs, time.Now()),
			Summarize(s.Payload),
		)
	}

	noun := "session"
	if len(sessions) != 1 {
		noun = "sessions"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(sessions), noun)

	return len(sessions)
}

// FormatJSONL writes one compact JSON object per session.
func FormatJSONL(w io.Writer, sessions []*activity.Session) error {
	for _, s := range sessions {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal session to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one session as indented JSON.
func FormatSingleJSON(w io.Writer, s *activity.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// Summarize describes a payload in one short line: the first headline
// field it finds, then the size of each collection, e.g.
// "Lunch? options=2 ballots=5".
func Summarize(payload json.RawMessage) string {
	var doc map[string]json.RawMessage
	if len(payload) == 0 || json.Unmarshal(payload, &doc) != nil {
		return "-"
	}

	var parts []string
	for _, key := range []string{"question", "title", "story", "prompt", "problem", "event", "center", "topic"} {
		var text string
		if json.Unmarshal(doc[key], &text) == nil && text != "" {
			parts = append(parts, truncate(text, 24))
			break
		}
	}

	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var items []json.RawMessage
		if json.Unmarshal(doc[key], &items) == nil {
			parts = append(parts, fmt.Sprintf("%s=%d", key, len(items)))
		}
	}

	if len(parts) == 0 {
		return "-"
	}
	return truncate(strings.Join(parts, " "), 48)
}

// formatID truncates a session id to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatState(closed bool) string {
	if closed {
		return "closed"
	}
	return "open"
}

func truncate(s string, n int) string {
	if s == "" {
		return "-"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatAge renders a creation time relative to now, e.g. "2m ago".
func formatAge(timestampMs int64, now time.Time) string {
	if timestampMs == 0 {
		return "-"
	}
	diff := now.Sub(time.UnixMilli(timestampMs))

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
