// Package ledger applies increments to the tally document.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/devtally/internal/apperr"
	"github.com/starford/devtally/internal/handle"
	"github.com/starford/devtally/internal/models"
)

// Record adds n to the kind counter of doc[key], creating the record if it
// does not exist yet. A non-blank note is appended as a NoteEntry. The
// record's updated_at is stamped with now, or kept if it is already later,
// so it never moves backwards. Invalid input leaves doc untouched.
func Record(doc models.Document, key string, kind models.Kind, n int, note string, now time.Time) (*models.UserRecord, error) {
	if !handle.Valid(key) {
		return nil, fmt.Errorf("%w: handle %q is not a normalized key", apperr.ErrValidation, key)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown counter %q", apperr.ErrValidation, kind)
	}

	rec := doc[key]
	if rec == nil {
		rec = models.NewUserRecord()
		doc[key] = rec
	}

	stamp := models.NewTimestamp(now)
	if rec.UpdatedAt != nil && rec.UpdatedAt.After(stamp.Time) {
		stamp = *rec.UpdatedAt
	}

	switch kind {
	case models.KindDone:
		rec.Done += n
	case models.KindFail:
		rec.Fail += n
	}

	if note = strings.TrimSpace(note); note != "" {
		rec.Notes = append(rec.Notes, models.NoteEntry{Type: kind, N: n, Note: note, At: stamp})
	}
	rec.UpdatedAt = &stamp
	return rec, nil
}
