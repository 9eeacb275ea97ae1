package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/starford/devtally/internal/apperr"
)

// ParseCount parses an increment argument. It accepts decimal digits from any
// script (ASCII, Arabic-Indic, Devanagari, fullwidth, ...), an optional sign,
// and single underscores between digits ("1_000").
func ParseCount(raw string) (int, error) {
	invalid := fmt.Errorf("%w: %q is not an integer", apperr.ErrValidation, raw)

	s := strings.TrimSpace(raw)
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if s == "" {
		return 0, invalid
	}

	var b strings.Builder
	b.WriteString(sign)
	afterUnderscore := true
	for _, r := range s {
		if r == '_' {
			if afterUnderscore {
				return 0, invalid
			}
			afterUnderscore = true
			continue
		}
		d, ok := digitValue(r)
		if !ok {
			return 0, invalid
		}
		b.WriteByte(byte('0' + d))
		afterUnderscore = false
	}
	if afterUnderscore {
		return 0, invalid
	}

	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %q is out of range", apperr.ErrValidation, raw)
	}
	return n, nil
}

// digitValue maps a Unicode decimal digit (category Nd) to its value.
// Nd characters come in contiguous runs of ten starting at zero, so the
// value is the distance from the start of the run, modulo ten.
func digitValue(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	if !unicode.IsDigit(r) {
		return 0, false
	}
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}
	return int(r-start) % 10, true
}
