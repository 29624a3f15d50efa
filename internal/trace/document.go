// Package trace models AI-edit trace documents and the range/hash evidence
// they carry. Trace records arrive as deeply nested JSON with several
// optional places for line ranges and content hashes; decoding is lenient
// so a malformed corner of a document never loses the rest of it.
package trace

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ashita-ai/yurai/internal/model"
)

// Line is a lenient line-number field. JSON numbers and numeric strings
// decode to a valid value; anything else (null, objects, garbage strings)
// decodes to an unset Line. Non-integer range values are skipped silently.
type Line struct {
	Value int
	Valid bool
}

// UnmarshalJSON never fails; invalid input leaves the Line unset.
func (l *Line) UnmarshalJSON(b []byte) error {
	l.Value, l.Valid = 0, false
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	if n, err := strconv.Atoi(s); err == nil {
		l.Value, l.Valid = n, true
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		l.Value, l.Valid = int(f), true
	}
	return nil
}

// MarshalJSON round-trips valid lines and emits null for unset ones.
func (l Line) MarshalJSON() ([]byte, error) {
	if !l.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(l.Value)), nil
}

// Document is the typed view of a full trace record.
type Document struct {
	ID        string         `json:"id"`
	Version   string         `json:"version"`
	Timestamp string         `json:"timestamp"`
	VCS       VCS            `json:"vcs"`
	Tool      map[string]any `json:"tool"`
	Files     []FileEntry    `json:"files"`
	Metadata  map[string]any `json:"metadata"`
}

// VCS records the commit the developer was on when the trace was captured.
type VCS struct {
	Revision string `json:"revision"`
}

// FileEntry describes one file touched by the trace.
type FileEntry struct {
	Path          string         `json:"path"`
	StartLine     Line           `json:"start_line"`
	EndLine       Line           `json:"end_line"`
	ContentHash   string         `json:"content_hash"`
	Conversations []Conversation `json:"conversations"`
	Changes       []Change       `json:"changes"`
}

// Conversation links a span of the file to the AI conversation that
// produced it.
type Conversation struct {
	URL         string      `json:"url"`
	Contributor Contributor `json:"contributor"`
	StartLine   Line        `json:"start_line"`
	EndLine     Line        `json:"end_line"`
	ContentHash string      `json:"content_hash"`
	Ranges      []Range     `json:"ranges"`
}

// Contributor identifies the author of a conversation span.
type Contributor struct {
	Type    string `json:"type"`
	ModelID string `json:"model_id"`
}

// Range is a hashed sub-span inside a conversation.
type Range struct {
	StartLine   Line   `json:"start_line"`
	EndLine     Line   `json:"end_line"`
	ContentHash string `json:"content_hash"`
}

// Change is a hashed edit span recorded at the file level.
type Change struct {
	StartLine   Line   `json:"start_line"`
	EndLine     Line   `json:"end_line"`
	ContentHash string `json:"content_hash"`
}

// ParseTimestamp parses an ISO-8601 timestamp. Capture clients emit both
// offset-carrying (RFC 3339) and offset-less forms; offset-less values are
// interpreted as UTC. Fractional seconds are accepted in either form.
func ParseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

// Decode parses a full trace record.
func Decode(record []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(record, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Resolved is the working view of a stored trace row. The indexed columns
// take priority; fields missing there are filled from the full record, so
// rows with sparse projections still attribute correctly.
type Resolved struct {
	TraceID   string
	Timestamp time.Time
	Revision  string
	Tool      map[string]any
	Files     []FileEntry
}

// Resolve merges a stored trace row's indexed columns with its full record.
func Resolve(row model.StoredTrace) Resolved {
	r := Resolved{TraceID: row.TraceID, Timestamp: row.TraceTimestamp}

	var doc Document
	if len(row.Record) > 0 {
		doc, _ = Decode(row.Record)
	}

	var vcs VCS
	if len(row.VCS) > 0 && json.Unmarshal(row.VCS, &vcs) == nil && vcs.Revision != "" {
		r.Revision = vcs.Revision
	} else {
		r.Revision = doc.VCS.Revision
	}

	var tool map[string]any
	if len(row.Tool) > 0 && json.Unmarshal(row.Tool, &tool) == nil && tool != nil {
		r.Tool = tool
	} else {
		r.Tool = doc.Tool
	}

	var files []FileEntry
	if len(row.Files) > 0 && json.Unmarshal(row.Files, &files) == nil && len(files) > 0 {
		r.Files = files
	} else {
		r.Files = doc.Files
	}

	return r
}

// MatchFile finds the file entry matching path. Matching is deliberately
// lenient: exact equality, or either string being a suffix of the other,
// to bridge absolute-vs-project-relative path differences. The scorer
// compensates for this looseness with stronger signals.
func MatchFile(files []FileEntry, path string) *FileEntry {
	if path == "" {
		return nil
	}
	for i := range files {
		p := files[i].Path
		if p == "" {
			continue
		}
		if p == path || strings.HasSuffix(p, path) || strings.HasSuffix(path, p) {
			return &files[i]
		}
	}
	return nil
}

// TouchesFile reports whether any file entry matches path.
func TouchesFile(files []FileEntry, path string) bool {
	return MatchFile(files, path) != nil
}
