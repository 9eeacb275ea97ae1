// Package report renders the tally document as ranked text.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/devtally/internal/models"
)

// Reply texts.
const (
	Header       = "تقرير الديفات:"
	EmptyMessage = "ما فيه بيانات للحين. استخدم /add و /fail."
	placeholder  = "-"
)

// Row is one ranked line of the report.
type Row struct {
	Handle    string            `json:"handle"`
	Done      int               `json:"done"`
	Fail      int               `json:"fail"`
	Notes     int               `json:"notes"`
	UpdatedAt *models.Timestamp `json:"updated_at"`
}

// Rows returns one row per user ordered by done descending, then by handle.
func Rows(doc models.Document) []Row {
	rows := make([]Row, 0, len(doc))
	for key, rec := range doc {
		rows = append(rows, Row{
			Handle:    key,
			Done:      rec.Done,
			Fail:      rec.Fail,
			Notes:     len(rec.Notes),
			UpdatedAt: rec.UpdatedAt,
		})
	}
	slices.SortFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Done, a.Done); c != 0 {
			return c
		}
		return strings.Compare(a.Handle, b.Handle)
	})
	return rows
}

// Render returns the ranked summary, or EmptyMessage for an empty document.
func Render(doc models.Document) string {
	if len(doc) == 0 {
		return EmptyMessage
	}
	lines := []string{Header + "\n"}
	for _, r := range Rows(doc) {
		updated := placeholder
		if r.UpdatedAt != nil {
			updated = r.UpdatedAt.String()
		}
		lines = append(lines, fmt.Sprintf("- @%s: منجز=%d | سقط/فشل=%d | آخر تحديث=%s", r.Handle, r.Done, r.Fail, updated))
	}
	return strings.Join(lines, "\n")
}

// RenderNotes lists the notes of one user in the order they were recorded.
func RenderNotes(key string, rec *models.UserRecord) string {
	if rec == nil {
		return fmt.Sprintf("ما فيه بيانات عن @%s.", key)
	}
	if len(rec.Notes) == 0 {
		return fmt.Sprintf("ما فيه ملاحظات مسجلة لـ @%s.", key)
	}
	lines := []string{fmt.Sprintf("ملاحظات @%s:", key)}
	for _, n := range rec.Notes {
		lines = append(lines, fmt.Sprintf("- %s %+d: %s (%s)", kindLabel(n.Type), n.N, n.Note, n.At))
	}
	return strings.Join(lines, "\n")
}

func kindLabel(k models.Kind) string {
	if k == models.KindFail {
		return "فشل"
	}
	return "منجز"
}
