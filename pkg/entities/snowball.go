package entities

import (
	"regexp"
	"strings"

	"github.com/civicwatch/civicwatch/pkg/textutil"
)

// AliasConfidence is the confidence assigned to a mention resolved
// through a derived alias rather than a direct titled match.
const AliasConfidence = 0.7

// PersonRef identifies the canonical person an alias resolves to.
type PersonRef struct {
	DisplayValue    string
	NormalizedValue string
}

// AliasMatch is one alias hit found in a text by Resolve.
type AliasMatch struct {
	Alias      string
	Person     PersonRef
	Confidence float64
}

// AliasSet is the per-run scratch state for snowball alias matching: as
// titled person mentions are found during one ingest run, their full
// names and surnames are seeded here, and later bare references in the
// same run resolve against it. The set is scoped to a single run and a
// single meeting's extraction pass; it never consults aliases from
// unrelated runs, so a bare surname with no titled mention in this run
// resolves to nothing.
type AliasSet struct {
	byAlias   map[string]PersonRef
	ambiguous map[string]bool
	order     []string
}

// NewAliasSet creates an empty per-run alias accumulator.
func NewAliasSet() *AliasSet {
	return &AliasSet{
		byAlias:   make(map[string]PersonRef),
		ambiguous: make(map[string]bool),
	}
}

// Seed registers a titled person mention. The full name becomes an alias,
// and for multi-token names the final token is derived as a surname
// alias. A surname already seeded for a different person becomes
// ambiguous and is withdrawn rather than guessed at.
func (s *AliasSet) Seed(displayValue, normalizedValue string) {
	display := textutil.Normalize(displayValue)
	if display == "" {
		return
	}
	ref := PersonRef{DisplayValue: display, NormalizedValue: normalizedValue}

	s.put(strings.ToLower(display), ref)

	tokens := strings.Fields(display)
	if len(tokens) < 2 {
		return
	}
	surname := tokens[len(tokens)-1]
	if len(surname) < 3 {
		return
	}
	s.put(strings.ToLower(surname), ref)
}

func (s *AliasSet) put(alias string, ref PersonRef) {
	if s.ambiguous[alias] {
		return
	}
	existing, ok := s.byAlias[alias]
	if !ok {
		s.byAlias[alias] = ref
		s.order = append(s.order, alias)
		return
	}
	if existing.NormalizedValue != ref.NormalizedValue {
		delete(s.byAlias, alias)
		s.ambiguous[alias] = true
	}
}

// Aliases returns the live aliases for an entity, in seed order. Used to
// persist derived aliases alongside the canonical person row.
func (s *AliasSet) Aliases(normalizedValue string) []string {
	var out []string
	for _, alias := range s.order {
		ref, ok := s.byAlias[alias]
		if ok && ref.NormalizedValue == normalizedValue {
			out = append(out, alias)
		}
	}
	return out
}

// Resolve finds alias occurrences in a text. Matching is exact word
// boundary, case-insensitive. Each distinct (alias, person) pair is
// reported once per call regardless of occurrence count.
func (s *AliasSet) Resolve(text string) []AliasMatch {
	normalized := textutil.Normalize(text)
	if normalized == "" || len(s.byAlias) == 0 {
		return nil
	}

	var out []AliasMatch
	for _, alias := range s.order {
		ref, ok := s.byAlias[alias]
		if !ok {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`)
		if err != nil {
			continue
		}
		if !re.MatchString(normalized) {
			continue
		}
		out = append(out, AliasMatch{
			Alias:      alias,
			Person:     ref,
			Confidence: AliasConfidence,
		})
	}
	return out
}
