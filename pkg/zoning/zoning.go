// Package zoning extracts structured zoning-change signals from agenda item
// text already tagged with the zoning topic. Every field is independently
// optional: a field is present only when the text yields it, never
// fabricated.
package zoning

import (
	"regexp"
	"strings"

	"github.com/civicwatch/civicwatch/pkg/textutil"
)

// ReadingStage is the ordinance reading stage.
type ReadingStage string

const (
	ReadingFirst  ReadingStage = "first"
	ReadingSecond ReadingStage = "second"
	ReadingThird  ReadingStage = "third"
)

// Signals is the structured extraction result for one zoning-tagged item.
// Zero-value fields mean "applicable but nothing found"; callers represent
// "not applicable" with a nil *Signals.
type Signals struct {
	OrdinanceNumber string       `json:"ordinance_number,omitempty"`
	FromZone        string       `json:"from_zone,omitempty"`
	ToZone          string       `json:"to_zone,omitempty"`
	ReadingStage    ReadingStage `json:"reading_stage,omitempty"`
	Address         string       `json:"address,omitempty"`
}

// Empty reports whether no field was extracted.
func (s *Signals) Empty() bool {
	return s == nil || *s == Signals{}
}

const zoneToken = `(?:[A-Za-z]{1,4}\s*-\s*[A-Za-z0-9]{1,4}|[A-Za-z]{2,5})`

var (
	ordinancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bordinance\s*(?:no\.?|number)?\s*([A-Z]?\d{1,4}[-/]\d{1,4})\b`),
		regexp.MustCompile(`(?i)\bord(?:inance)?\s*(?:no\.?)?\s*([A-Z]?\d{1,4}[-/]\d{1,4})\b`),
	}
	readingRE    = regexp.MustCompile(`(?i)\b(first|second|third|final)\s+reading\b`)
	thirdFinalRE = regexp.MustCompile(`(?i)\bthird\s+and\s+final\s+reading\b`)
	addressRE    = regexp.MustCompile(
		`(?i)\b\d{1,6}\s+[A-Za-z0-9.'-]+(?:\s+[A-Za-z0-9.'-]+){0,5}\s+` +
			`(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Lane|Ln|Boulevard|Blvd|Court|Ct|Way|Terrace|Ter|Place|Pl|Circle|Cir|Parkway|Pkwy)\b`)
	fromToRE   = regexp.MustCompile(`(?i)\bfrom\s+(` + zoneToken + `)\s+to\s+(` + zoneToken + `)\b`)
	rezoneToRE = regexp.MustCompile(`(?i)\brezone(?:d|s|ing)?\b.*?\b(` + zoneToken + `)\s+to\s+(` + zoneToken + `)\b`)

	zoneDashRE = regexp.MustCompile(`\s*-\s*`)
)

// Extract pulls zoning signals from an item's title and optional body text.
// Deterministic; under-extraction is preferred over guessing.
func Extract(title, body string) *Signals {
	text := textutil.Normalize(title + " " + body)
	if text == "" {
		return &Signals{}
	}

	s := &Signals{}

	if m := fromToRE.FindStringSubmatch(text); m != nil {
		s.FromZone = cleanZone(m[1])
		s.ToZone = cleanZone(m[2])
	} else if m := rezoneToRE.FindStringSubmatch(text); m != nil {
		s.FromZone = cleanZone(m[1])
		s.ToZone = cleanZone(m[2])
	}

	for _, p := range ordinancePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			s.OrdinanceNumber = textutil.Normalize(m[1])
			break
		}
	}

	if thirdFinalRE.MatchString(text) {
		s.ReadingStage = ReadingThird
	} else if m := readingRE.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "final", "third":
			s.ReadingStage = ReadingThird
		case "second":
			s.ReadingStage = ReadingSecond
		case "first":
			s.ReadingStage = ReadingFirst
		}
	}

	if m := addressRE.FindString(text); m != "" {
		s.Address = textutil.Normalize(m)
	}

	return s
}

// cleanZone uppercases a zone token and tightens the dash: "c- h" -> "C-H".
func cleanZone(zone string) string {
	zone = textutil.Normalize(zone)
	if zone == "" {
		return ""
	}
	return strings.ToUpper(zoneDashRE.ReplaceAllString(zone, "-"))
}
