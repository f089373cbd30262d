package textutil

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	longDateRE = regexp.MustCompile(
		`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`)
	longDatePartsRE = regexp.MustCompile(`(?i)^([A-Za-z]+)\s+(\d{1,2}),\s+(\d{4})$`)
)

var longMonths = map[string]string{
	"january": "01", "february": "02", "march": "03", "april": "04",
	"may": "05", "june": "06", "july": "07", "august": "08",
	"september": "09", "october": "10", "november": "11", "december": "12",
}

// ParseLongDate converts a spelled-out date like "January 2, 2026" into
// ISO form "2026-01-02". Returns false when the input is not exactly a
// long-form date.
func ParseLongDate(s string) (string, bool) {
	m := longDatePartsRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	month, ok := longMonths[strings.ToLower(m[1])]
	if !ok {
		return "", false
	}
	day := m[2]
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("%s-%s-%s", m[3], month, day), true
}

// FindLongDate scans a text for the first spelled-out date and returns it
// in ISO form, or "" when none is found.
func FindLongDate(s string) string {
	match := longDateRE.FindString(Normalize(s))
	if match == "" {
		return ""
	}
	iso, ok := ParseLongDate(match)
	if !ok {
		return ""
	}
	return iso
}
