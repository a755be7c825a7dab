package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - text: strings and []byte are written raw, anything else falls back to JSON
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "text":
		return WriteText(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
//
// NOTE: output stays strict JSON. Hints for follow-up commands go in `_hints` fields.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// WriteText unwraps a {"data": ...} envelope and writes string payloads verbatim.
func WriteText(w io.Writer, v any, pretty bool) error {
	if m, ok := v.(map[string]any); ok {
		if d, ok := m["data"]; ok {
			v = d
		}
	}
	switch t := v.(type) {
	case string:
		_, err := io.WriteString(w, t)
		return err
	case []byte:
		_, err := w.Write(t)
		return err
	}
	return WriteJSON(w, v, pretty)
}
