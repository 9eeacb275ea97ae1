package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/devtally/internal/apperr"
	"github.com/starford/devtally/internal/models"
)

// Encode renders doc as two-space indented UTF-8 JSON with non-ASCII and HTML
// characters kept literal and no trailing newline.
func Encode(doc models.Document) ([]byte, error) {
	if doc == nil {
		doc = models.Document{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("storage: encode: %w", err)
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

var (
	escLS = []byte(`\u2028`)
	escPS = []byte(`\u2029`)
)

// unescapeLineSeparators writes U+2028 and U+2029 literally, as every other
// non-ASCII character. encoding/json always escapes them. Backslashes in
// encoded JSON only start two-byte or \uXXXX escapes, so walking escape by
// escape never mistakes an escaped backslash followed by "u2028" for one.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, escLS) && !bytes.Contains(data, escPS) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		switch {
		case bytes.HasPrefix(data[i:], escLS):
			out = append(out, "\u2028"...)
			i += len(escLS)
		case bytes.HasPrefix(data[i:], escPS):
			out = append(out, "\u2029"...)
			i += len(escPS)
		case data[i] == '\\' && i+1 < len(data):
			out = append(out, data[i], data[i+1])
			i += 2
		default:
			out = append(out, data[i])
			i++
		}
	}
	return out
}

// Decode parses and validates a persisted document. Malformed or invalid
// content yields an error wrapping apperr.ErrCorrupt.
func Decode(data []byte) (models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("storage: %w: %w", apperr.ErrCorrupt, err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("storage: %w: %w", apperr.ErrCorrupt, err)
	}
	for _, rec := range doc {
		if rec.Notes == nil {
			rec.Notes = []models.NoteEntry{}
		}
	}
	return doc, nil
}
