// Package entities extracts graph entity candidates from meeting text
// sources using deterministic rule-based patterns, and persists the
// resulting entities, aliases, and mentions.
package entities

import (
	"regexp"
	"strings"

	"github.com/civicwatch/civicwatch/pkg/textutil"
)

// Entity types. Structural types (meeting, document) are created by the
// graph builder from derived keys; the rest come out of text extraction.
const (
	TypePerson       = "person"
	TypeDate         = "date"
	TypeAddress      = "address"
	TypeOrdinance    = "ordinance_number"
	TypeResolution   = "resolution_number"
	TypeOrganization = "organization"
	TypeMeeting      = "meeting"
	TypeDocument     = "document"
)

// Mention source types. SourceID carries the provenance anchor for the
// source: the local row id for metadata and title sources, the upstream
// document id for content and minutes excerpts (both stable across
// re-ingests).
const (
	SourceMeetingMetadata = "meeting_metadata"
	SourceAgendaItemTitle = "agenda_item_title"
	SourceDocumentTitle   = "document_title"
	SourceDocumentContent = "document_content"
	SourceMinutesExcerpt  = "minutes_excerpt"
)

// Candidate is one extraction hit: a typed value plus the literal span it
// was matched from. Confidence reflects pattern specificity, not model
// certainty; the scanner is rule-based and prefers under-extraction.
type Candidate struct {
	Type            string
	DisplayValue    string
	NormalizedValue string
	MentionText     string
	Confidence      float64
}

var (
	dateRE = regexp.MustCompile(
		`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`)
	addressRE = regexp.MustCompile(
		`(?i)\b\d{1,6}\s+[A-Za-z0-9.'-]+(?:\s+[A-Za-z0-9.'-]+){0,5}\s+` +
			`(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Lane|Ln|Boulevard|Blvd|Court|Ct|Way|Terrace|Ter|Place|Pl|Circle|Cir|Parkway|Pkwy)\b`)
	addressForTailRE = regexp.MustCompile(`(?i)\bfor\s+\d`)
	addressForSplit  = regexp.MustCompile(`(?i)\bfor\b`)
	leadingNumberRE  = regexp.MustCompile(`^\d{1,6}\b`)
	ordinanceRE      = regexp.MustCompile(`(?i)\bOrdinance\s+(?:No\.?\s*)?([A-Z]?\d{4}-\d{2,4})\b`)
	resolutionRE     = regexp.MustCompile(`(?i)\bResolution\s+([A-Z]?\d{2,4}-\d{4})\b`)
	orgRE            = regexp.MustCompile(
		`\b([A-Z][A-Za-z0-9&'.,-]*(?:\s+[A-Z][A-Za-z0-9&'.,-]*){0,7}\s+(?:LLC|Inc\.?|Company|Corp\.?|Corporation))\b`)
	titledPersonRE = regexp.MustCompile(
		`\b(?:Mayor|Council\s*Member|Councilmember|Chair|Commissioner|City\s+Manager|Director)\s+` +
			`([A-Z][a-z]+(?:\s+[A-Z]\.)?(?:\s+[A-Z][a-z]+){1,2})\b`)
)

// Per-type base confidence. Instrument numbers and dates come from
// keyword-anchored patterns and rank highest; organizations and titled
// names are looser shapes.
var baseConfidence = map[string]float64{
	TypeDate:         1.0,
	TypeOrdinance:    1.0,
	TypeResolution:   1.0,
	TypeAddress:      0.9,
	TypePerson:       0.9,
	TypeOrganization: 0.8,
}

// normalizeValue produces (display, normalized) for a raw matched span.
func normalizeValue(entityType, value string) (string, string) {
	raw := textutil.Normalize(value)
	switch entityType {
	case TypeDate:
		if iso, ok := textutil.ParseLongDate(raw); ok {
			return raw, iso
		}
		return raw, strings.ToLower(raw)
	case TypeOrdinance, TypeResolution:
		return raw, strings.ToUpper(raw)
	default:
		return raw, strings.ToLower(raw)
	}
}

// Scan extracts entity candidates from free text. Deterministic and pure:
// identical input always yields identical candidates in a stable order.
// Duplicate (type, normalized value) hits within one text collapse to the
// first occurrence.
func Scan(text string) []Candidate {
	normalized := textutil.Normalize(text)
	if normalized == "" {
		return nil
	}

	var found []Candidate
	seen := make(map[[2]string]bool)

	add := func(entityType, matchText string) {
		display, normalizedValue := normalizeValue(entityType, matchText)
		key := [2]string{entityType, normalizedValue}
		if seen[key] {
			return
		}
		seen[key] = true
		found = append(found, Candidate{
			Type:            entityType,
			DisplayValue:    display,
			NormalizedValue: normalizedValue,
			MentionText:     textutil.Normalize(matchText),
			Confidence:      baseConfidence[entityType],
		})
	}

	for _, m := range dateRE.FindAllString(normalized, -1) {
		add(TypeDate, m)
	}

	for _, m := range addressRE.FindAllString(normalized, -1) {
		add(TypeAddress, trimAddressTail(m))
	}

	for _, m := range ordinanceRE.FindAllStringSubmatch(normalized, -1) {
		add(TypeOrdinance, m[1])
	}
	for _, m := range resolutionRE.FindAllStringSubmatch(normalized, -1) {
		add(TypeResolution, m[1])
	}

	for _, m := range orgRE.FindAllStringSubmatch(normalized, -1) {
		add(TypeOrganization, m[1])
	}

	for _, m := range titledPersonRE.FindAllStringSubmatch(normalized, -1) {
		add(TypePerson, m[1])
	}

	demoteAmbiguousInstruments(found)
	return found
}

// trimAddressTail guards against ordinance/resolution tails like
// "... 2026-14 for 10841 Douglas Avenue" by re-anchoring the match to the
// last street-number phrase inside its span.
func trimAddressTail(candidate string) string {
	if !addressForTailRE.MatchString(candidate) {
		return candidate
	}
	parts := addressForSplit.Split(candidate, -1)
	if len(parts) == 0 {
		return candidate
	}
	maybe := textutil.Normalize(parts[len(parts)-1])
	if leadingNumberRE.MatchString(maybe) {
		return maybe
	}
	return candidate
}

// demoteAmbiguousInstruments halves confidence when the same number token
// surfaced as both an ordinance and a resolution in one text. No
// precedence is assumed between the two instrument types; both candidates
// stay, flagged as weak.
func demoteAmbiguousInstruments(found []Candidate) {
	counts := make(map[string]int)
	for _, c := range found {
		if c.Type == TypeOrdinance || c.Type == TypeResolution {
			counts[c.NormalizedValue]++
		}
	}
	for i := range found {
		c := &found[i]
		if (c.Type == TypeOrdinance || c.Type == TypeResolution) && counts[c.NormalizedValue] > 1 {
			c.Confidence = c.Confidence / 2
		}
	}
}
