package models

import (
	"strconv"
	"strings"
)

// Severity levels in their canonical form. The raw token "WARN" is
// canonicalized to "WARNING" everywhere it can be produced.
const (
	LevelDebug    = "DEBUG"
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
	LevelFatal    = "FATAL"
)

// CanonicalLevel upper-cases a severity token and maps WARN to WARNING.
func CanonicalLevel(level string) string {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "WARN" {
		return LevelWarning
	}
	return level
}

// Reserved attribute names. Extractor captures under these names are written
// back to the entry's top-level attributes rather than kept as plain fields.
const (
	FieldID        = "id"
	FieldTimestamp = "ts"
	FieldLevel     = "level"
	FieldMessage   = "message"
	FieldRaw       = "raw"
)

// IsReservedField reports whether name addresses a top-level entry attribute.
func IsReservedField(name string) bool {
	switch name {
	case FieldID, FieldTimestamp, "timestamp", FieldLevel, FieldMessage, FieldRaw:
		return true
	}
	return false
}

// LogEntry is one logical, possibly multi-line, log event.
//
// Timestamp holds the normalized ISO-8601 UTC instant as a string
// (millisecond precision, "Z" suffix) or "" when no timestamp was
// recognized. Keeping it a string makes the empty-below-everything
// ascending sort a plain lexicographic comparison.
type LogEntry struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp,omitempty"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message"`
	Raw       string `json:"raw"`

	// Fields maps extracted-field names to captured values. Values are
	// always arrays, even for single captures, so that merge strategies
	// compose uniformly.
	Fields map[string][]string `json:"fields,omitempty"`

	// SearchIndex is the lowercase concatenation of raw, message and all
	// field values, used for case-insensitive quick search. It must be
	// refreshed whenever raw, message or fields change.
	SearchIndex string `json:"-"`
}

// RefreshSearchIndex recomputes the quick-search index from the entry's
// current raw text, message and extracted fields.
func (e *LogEntry) RefreshSearchIndex() {
	var b strings.Builder
	b.Grow(len(e.Raw) + len(e.Message) + 16)
	b.WriteString(e.Raw)
	b.WriteByte('\n')
	b.WriteString(e.Message)
	for _, values := range e.Fields {
		for _, v := range values {
			b.WriteByte('\n')
			b.WriteString(v)
		}
	}
	e.SearchIndex = strings.ToLower(b.String())
}

// Attribute resolves a reserved field name to its top-level value.
// The second return is false when name is not reserved.
func (e *LogEntry) Attribute(name string) (string, bool) {
	switch name {
	case FieldID:
		return strconv.Itoa(e.ID), true
	case FieldTimestamp, "timestamp":
		return e.Timestamp, true
	case FieldLevel:
		return e.Level, true
	case FieldMessage:
		return e.Message, true
	case FieldRaw:
		return e.Raw, true
	}
	return "", false
}
