package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// readJSONArg reads a JSON document given inline, as @file, or as "-" for
// stdin. An empty arg yields nil.
func readJSONArg(arg string, stdin io.Reader) (json.RawMessage, error) {
	var data []byte
	switch {
	case arg == "":
		return nil, nil
	case arg == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		data = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg[1:], err)
		}
		data = b
	default:
		data = []byte(arg)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("not valid JSON: %s", strings.TrimSpace(string(data)))
	}
	return json.RawMessage(data), nil
}

// printSession writes a session as indented JSON.
func printSession(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
