package facts

import (
	"fmt"
	"strings"
)

// NormalizeValue produces the comparison form of an extracted value.
// Conflict detection groups candidates by this form, so two candidates that
// normalize equally are the same value for reconciliation purposes.
//
// Rules: render to string, trim, lowercase, collapse internal whitespace.
// Values that look numeric additionally lose thousands separators, so
// "74'200", "74,200" and "74200" reconcile to one value.
func NormalizeValue(v any) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	if s == "" {
		return ""
	}
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))

	if stripped := stripThousands(s); stripped != "" {
		return stripped
	}
	return s
}

// stripThousands returns the digit form of a numeric-looking string with
// apostrophe/comma/space group separators removed, or "" when the input is
// not numeric-looking.
func stripThousands(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '\'' || r == ',' || r == ' ' || r == '’':
			// group separator, skip
		case r == '.':
			b.WriteRune(r)
		default:
			return ""
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String()
}
