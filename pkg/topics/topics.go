// Package topics classifies agenda items into a fixed policy taxonomy
// using curated keyword and phrase patterns. Matching favors precision over
// recall: broad or ambiguous patterns are deliberately excluded so a label
// is only attached when the text clearly signals the topic.
package topics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/civicwatch/civicwatch/pkg/textutil"
)

// Topic is a label from the fixed taxonomy.
type Topic string

const (
	TopicZoning                 Topic = "zoning"
	TopicOrdinancesGeneral      Topic = "ordinances_general"
	TopicPublicHearings         Topic = "public_hearings"
	TopicSchools                Topic = "schools"
	TopicPublicSafety           Topic = "public_safety"
	TopicEnforcement            Topic = "enforcement"
	TopicContractsProcurement   Topic = "contracts_procurement"
	TopicBudgetFinance          Topic = "budget_finance"
	TopicInfrastructureTransport Topic = "infrastructure_transport"
	TopicUrbanRenewalDevelopment Topic = "urban_renewal_development"
	TopicBoardsCommissions      Topic = "boards_commissions"
	TopicLicensesPermits        Topic = "licenses_permits"
	TopicUtilitiesFranchise     Topic = "utilities_franchise"
)

// topicPatterns maps each topic to its signal list. Patterns run against
// lowercased normalized text.
var topicPatterns = map[Topic][]*regexp.Regexp{
	TopicZoning: compile(
		`\bzoning\b`,
		`\brezone\b`,
		`\brezoning\b`,
		`\bchapter\s*160\b`,
		`\btitle\s*(xv|15)\b`,
		`\bpud\b`,
		`\bplanned unit development\b`,
		`\b(c-\s*h|c-h)\b`,
		`\b(hwy|highway)\s+commercial\b`,
		`\brezone\b.*\bc-\s*h\b.*\bto\b.*\bpud\b`,
	),
	TopicOrdinancesGeneral: compile(
		`\bordinance\b`,
		`\b(first|second|third|final)\s+reading\b`,
	),
	TopicPublicHearings: compile(
		`\bpublic hearing\b`,
		`\bestablish public hearing\b`,
	),
	TopicSchools: compile(
		`\bschools?\b`,
		`\bschool district\b`,
		`\beducation(?:al)?\b`,
		`\bstudents?\b`,
	),
	TopicPublicSafety: compile(
		`\bpublic safety\b`,
		`\bpolice(?:\s+department)?\b`,
		`\bfire(?:\s+ems|\s+department)?\b`,
		`\bems\b`,
		`\bemergency medical\b`,
		`\btraffic safety\b`,
		`\blaw enforcement\b`,
	),
	TopicEnforcement: compile(
		`\bcode enforcement\b`,
		`\benforcement\b`,
		`\bmunicipal infractions?\b`,
		`\binfractions?\b`,
		`\bcitations?\b`,
		`\bviolations?\b`,
	),
	TopicContractsProcurement: compile(
		`\bbids?\b`,
		`\baward of contract\b`,
		`\bapproving contract\b`,
		`\bprofessional services agreement\b`,
		`\bcontract\b`,
	),
	TopicBudgetFinance: compile(
		`\bbudget\b`,
		`\bbill lists?\b`,
		`\bfinancial statements?\b`,
		`\bcash position\b`,
		`\bproperty tax\b`,
		`\bcapital loan notes?\b`,
	),
	TopicInfrastructureTransport: compile(
		`\bpaving\b`,
		`\bsidewalk\b`,
		`\bstreet\b`,
		`\bsewer\b`,
		`\bpatch program\b`,
	),
	TopicUrbanRenewalDevelopment: compile(
		`\burban renewal\b`,
		`\bdevelopment agreement\b`,
		`\bconveyance of property\b`,
	),
	TopicBoardsCommissions: compile(
		`\bboard of adjustment\b`,
		`\bcivil service\b`,
		`\badvisory board\b`,
		`\bboards?\s+and\s+commissions?\b`,
	),
	TopicLicensesPermits: compile(
		`\bbusiness licenses?\b`,
		`\bbuilding permit\b`,
		`\bpermit report\b`,
	),
	TopicUtilitiesFranchise: compile(
		`\belectric franchise\b`,
		`\bgas franchise\b`,
		`\bmidamerican\b`,
	),
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// All returns the full taxonomy in stable order.
func All() []Topic {
	out := make([]Topic, 0, len(topicPatterns))
	for t := range topicPatterns {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether the label belongs to the taxonomy.
func Valid(label string) bool {
	_, ok := topicPatterns[Topic(label)]
	return ok
}

// Classify returns the sorted set of topics matched by the item title and
// optional body text. It is deterministic and side-effect-free; an item may
// receive zero, one, or multiple labels.
func Classify(title, body string) []Topic {
	text := strings.ToLower(textutil.Normalize(title + " " + body))
	if text == "" {
		return nil
	}

	var matched []Topic
	for topic, patterns := range topicPatterns {
		for _, p := range patterns {
			if p.MatchString(text) {
				matched = append(matched, topic)
				break
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
	return matched
}

// Contains reports whether the topic set includes the given topic.
func Contains(set []Topic, topic Topic) bool {
	for _, t := range set {
		if t == topic {
			return true
		}
	}
	return false
}

// Strings converts a topic set to plain strings for storage.
func Strings(set []Topic) []string {
	out := make([]string, len(set))
	for i, t := range set {
		out[i] = string(t)
	}
	return out
}
