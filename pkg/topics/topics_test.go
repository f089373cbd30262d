package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  []Topic
	}{
		{
			name:  "rezone composite phrase",
			title: "Rezone 1234 Douglas Ave from C-H to PUD, Ordinance 2026-14, first reading",
			want:  []Topic{TopicOrdinancesGeneral, TopicZoning},
		},
		{
			name:  "bill list",
			title: "Approval of Bill Lists",
			want:  []Topic{TopicBudgetFinance},
		},
		{
			name:  "public hearing with contract",
			title: "Establish Public Hearing for Award of Contract",
			want:  []Topic{TopicContractsProcurement, TopicPublicHearings},
		},
		{
			name:  "street paving",
			title: "2026 Street Paving Program, Phase 2",
			want:  []Topic{TopicInfrastructureTransport},
		},
		{
			name:  "franchise",
			title: "MidAmerican Electric Franchise Renewal",
			want:  []Topic{TopicUtilitiesFranchise},
		},
		{
			name:  "no labels",
			title: "Roll Call",
			want:  nil,
		},
		{
			name:  "empty",
			title: "",
			want:  nil,
		},
		{
			name:  "body contributes",
			title: "Consider approval",
			body:  "Planned Unit Development concept plan",
			want:  []Topic{TopicZoning},
		},
		{
			name:  "zoning precision: plain development not zoning",
			title: "Development update presentation",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.title, tt.body))
		})
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t,
		Classify("ZONING text amendment", ""),
		Classify("zoning text amendment", ""),
	)
}

func TestClassifyReturnsSortedDistinctLabels(t *testing.T) {
	got := Classify("Zoning ordinance, rezoning, Chapter 160, first reading", "")
	assert.Equal(t, []Topic{TopicOrdinancesGeneral, TopicZoning}, got)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("zoning"))
	assert.True(t, Valid("budget_finance"))
	assert.False(t, Valid("not_a_topic"))
	assert.False(t, Valid(""))
}

func TestAllCoversTaxonomy(t *testing.T) {
	all := All()
	assert.Len(t, all, 13)
	assert.True(t, Contains(all, TopicZoning))
	assert.True(t, Contains(all, TopicUtilitiesFranchise))
}
