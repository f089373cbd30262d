package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateSet(cands []Candidate) map[[2]string]bool {
	out := make(map[[2]string]bool, len(cands))
	for _, c := range cands {
		out[[2]string{c.Type, c.NormalizedValue}] = true
	}
	return out
}

func TestScanDetectsCoreTypes(t *testing.T) {
	text := "Approve the Third and Final Reading of Ordinance 2026-14 for 10841 Douglas Avenue " +
		"with The Enclave Apartments, LLC on February 18, 2026 and Resolution 080-2026"

	cands := Scan(text)
	byType := candidateSet(cands)

	assert.True(t, byType[[2]string{TypeOrdinance, "2026-14"}])
	assert.True(t, byType[[2]string{TypeResolution, "080-2026"}])
	assert.True(t, byType[[2]string{TypeAddress, "10841 douglas avenue"}])
	assert.True(t, byType[[2]string{TypeDate, "2026-02-18"}])

	foundOrg := false
	for _, c := range cands {
		if c.Type == TypeOrganization && c.NormalizedValue == "the enclave apartments, llc" {
			foundOrg = true
		}
	}
	assert.True(t, foundOrg, "expected organization candidate for The Enclave Apartments, LLC")
}

func TestScanTitledPerson(t *testing.T) {
	cands := Scan("Councilmember Jane Smith moved to approve the minutes.")

	require.Len(t, personsOf(cands), 1)
	p := personsOf(cands)[0]
	assert.Equal(t, "Jane Smith", p.DisplayValue)
	assert.Equal(t, "jane smith", p.NormalizedValue)
	assert.InDelta(t, 0.9, p.Confidence, 0.001)
}

func TestScanBareSurnameIsNotAPerson(t *testing.T) {
	cands := Scan("Smith moved to approve the minutes.")
	assert.Empty(t, personsOf(cands))
}

func TestScanDedupesRepeatedValues(t *testing.T) {
	cands := Scan("Ordinance 2026-14, second reading of Ordinance 2026-14")

	count := 0
	for _, c := range cands {
		if c.Type == TypeOrdinance {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestScanDateNormalization(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "padded day", text: "Meeting held January 2, 2026", want: "2026-01-02"},
		{name: "two digit day", text: "Adopted on February 18, 2026", want: "2026-02-18"},
		{name: "lowercase month", text: "continued to march 3, 2026", want: "2026-03-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := Scan(tt.text)
			require.Len(t, cands, 1)
			assert.Equal(t, TypeDate, cands[0].Type)
			assert.Equal(t, tt.want, cands[0].NormalizedValue)
		})
	}
}

func TestScanEmptyInput(t *testing.T) {
	assert.Nil(t, Scan(""))
	assert.Nil(t, Scan("      "))
}

func TestScanAddressReanchorsAfterFor(t *testing.T) {
	cands := Scan("Public hearing for Ordinance 2026-14 for 10841 Douglas Parkway")

	var addrs []Candidate
	for _, c := range cands {
		if c.Type == TypeAddress {
			addrs = append(addrs, c)
		}
	}
	require.Len(t, addrs, 1)
	assert.Equal(t, "10841 Douglas Parkway", addrs[0].DisplayValue)
}

func personsOf(cands []Candidate) []Candidate {
	var out []Candidate
	for _, c := range cands {
		if c.Type == TypePerson {
			out = append(out, c)
		}
	}
	return out
}
