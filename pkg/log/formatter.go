package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// JSONFormatter renders entries as single-line JSON objects.
type JSONFormatter struct {
	// TimeFormat overrides the timestamp layout. Defaults to time.RFC3339Nano.
	TimeFormat string
}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimeFormat
	if layout == "" {
		layout = rfc3339Nano
	}

	out := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		out[k] = v
	}
	out["level"] = entry.Level.String()
	out["msg"] = entry.Message
	out["ts"] = entry.Timestamp.Format(layout)
	if entry.Caller != "" {
		out["caller"] = entry.Caller
	}
	if entry.Error != nil {
		out["error"] = entry.Error.Error()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TextFormatter renders entries as human-readable key=value lines.
type TextFormatter struct {
	// DisableColor is accepted for API parity but the formatter never emits
	// ANSI escapes.
	DisableColor bool
}

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Timestamp.Format(rfc3339Nano))
	b.WriteByte(' ')
	b.WriteString(fmt.Sprintf("%-5s", entry.Level.String()))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
		}
	}
	if entry.Caller != "" {
		fmt.Fprintf(&b, " caller=%s", entry.Caller)
	}
	if entry.Error != nil {
		fmt.Fprintf(&b, " error=%s", entry.Error.Error())
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

const rfc3339Nano = "2006-01-02T15:04:05.999999999Z07:00"
