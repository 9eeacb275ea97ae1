package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTimestampString(t *testing.T) {
	whole := NewTimestamp(time.Date(2025, 3, 1, 9, 15, 2, 0, time.UTC))
	if got := whole.String(); got != "2025-03-01T09:15:02+00:00" {
		t.Errorf("whole seconds = %q", got)
	}
	frac := NewTimestamp(time.Date(2025, 3, 1, 9, 15, 2, 123456789, time.UTC))
	if got := frac.String(); got != "2025-03-01T09:15:02.123456+00:00" {
		t.Errorf("fractional = %q", got)
	}
	local := NewTimestamp(time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("AST", 3*3600)))
	if got := local.String(); got != "2025-03-01T09:00:00+00:00" {
		t.Errorf("converted = %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, in := range []string{
		"2025-03-01T09:15:02.123456+00:00",
		"2025-03-01T09:15:02.123456Z",
		"2025-03-01T12:15:02.123456+03:00",
		"2025-03-01T09:15:02.123456",
	} {
		ts, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", in, err)
		}
		if got := ts.String(); got != "2025-03-01T09:15:02.123456+00:00" {
			t.Errorf("ParseTimestamp(%q) = %q", in, got)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for garbage timestamp")
	}
}

func TestUserRecordJSONShape(t *testing.T) {
	rec := NewUserRecord()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"done":0,"fail":0,"notes":[],"updated_at":null}` {
		t.Errorf("json = %s", data)
	}
}

func TestDocumentValidate(t *testing.T) {
	at := NewTimestamp(time.Now())
	good := Document{"ali": {Done: 1, Notes: []NoteEntry{{Type: KindDone, N: 1, Note: "x", At: at}}}}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	cases := map[string]Document{
		"unnormalized key": {"Ali": NewUserRecord()},
		"empty key":        {"": NewUserRecord()},
		"null record":      {"ali": nil},
		"bad note type":    {"ali": {Notes: []NoteEntry{{Type: "maybe", N: 1, Note: "x", At: at}}}},
		"empty note":       {"ali": {Notes: []NoteEntry{{Type: KindFail, N: 1, At: at}}}},
	}
	for name, doc := range cases {
		if err := doc.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestDocumentValidateMentionsKey(t *testing.T) {
	doc := Document{"ali": nil}
	err := doc.Validate()
	if err == nil || !strings.Contains(err.Error(), `"ali"`) {
		t.Errorf("error = %v, want key in message", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	ts := NewTimestamp(time.Now())
	orig := Document{"ali": {Done: 2, Notes: []NoteEntry{{Type: KindDone, N: 2, Note: "a", At: ts}}, UpdatedAt: &ts}}
	cp := orig.Clone()
	cp["ali"].Done = 9
	cp["ali"].Notes[0].Note = "changed"
	cp["ali"].UpdatedAt.Time = time.Time{}

	if orig["ali"].Done != 2 || orig["ali"].Notes[0].Note != "a" || orig["ali"].UpdatedAt.IsZero() {
		t.Errorf("clone shares state with original: %+v", orig["ali"])
	}
}

func TestKindValid(t *testing.T) {
	if !KindDone.Valid() || !KindFail.Valid() {
		t.Error("known kinds must be valid")
	}
	if Kind("skip").Valid() {
		t.Error("unknown kind must be invalid")
	}
}
