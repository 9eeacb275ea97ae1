package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is a UTC instant with microsecond precision. It serializes the way
// Python's datetime.isoformat() renders an aware UTC value, e.g.
// "2025-03-01T09:15:02.123456+00:00", which keeps existing data files stable.
type Timestamp struct {
	time.Time
}

// NewTimestamp converts t to UTC and truncates it to microseconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Microsecond)}
}

// ParseTimestamp parses an RFC 3339 value. Values without an offset are
// taken as UTC.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		naive, naiveErr := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
		if naiveErr != nil {
			return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t = naive
	}
	return NewTimestamp(t), nil
}

// String renders the isoformat form.
func (t Timestamp) String() string {
	u := t.UTC()
	s := u.Format("2006-01-02T15:04:05")
	if us := u.Nanosecond() / int(time.Microsecond); us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s + "+00:00"
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
