// Package models defines the persisted tally document and its records.
package models

import (
	"fmt"
	"maps"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/devtally/internal/handle"
)

// Kind selects which counter an increment applies to.
type Kind string

// Counter kinds.
const (
	KindDone Kind = "done"
	KindFail Kind = "fail"
)

// Valid reports whether k names a known counter.
func (k Kind) Valid() bool {
	return k == KindDone || k == KindFail
}

// Document maps a normalized handle to its record.
type Document map[string]*UserRecord

// UserRecord holds the counters and notes of a single user.
type UserRecord struct {
	Done      int         `json:"done"`
	Fail      int         `json:"fail"`
	Notes     []NoteEntry `json:"notes"`
	UpdatedAt *Timestamp  `json:"updated_at"`
}

// NoteEntry is an append-only annotation recorded alongside an increment.
type NoteEntry struct {
	Type Kind      `json:"type"`
	N    int       `json:"n"`
	Note string    `json:"note"`
	At   Timestamp `json:"at"`
}

// NewUserRecord returns the zero-valued record created on first reference.
func NewUserRecord() *UserRecord {
	return &UserRecord{Notes: []NoteEntry{}}
}

// Validate validates a note entry.
func (e NoteEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.In(KindDone, KindFail)),
		validation.Field(&e.Note, validation.Required),
	)
}

// Validate validates a user record and each of its notes.
func (r UserRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Notes),
	)
}

// Validate checks that every key is a normalized handle and every record is
// well formed. Keys are visited in sorted order so errors are stable.
func (d Document) Validate() error {
	for _, key := range slices.Sorted(maps.Keys(d)) {
		if !handle.Valid(key) {
			return fmt.Errorf("user %q: key is not a normalized handle", key)
		}
		rec := d[key]
		if rec == nil {
			return fmt.Errorf("user %q: record is null", key)
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("user %q: %w", key, err)
		}
	}
	return nil
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for key, rec := range d {
		if rec == nil {
			out[key] = nil
			continue
		}
		cp := *rec
		cp.Notes = append(make([]NoteEntry, 0, len(rec.Notes)), rec.Notes...)
		if rec.UpdatedAt != nil {
			ts := *rec.UpdatedAt
			cp.UpdatedAt = &ts
		}
		out[key] = &cp
	}
	return out
}
