package zoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFullRezoneTitle(t *testing.T) {
	s := Extract("Rezone 1234 Douglas Ave from C-H to PUD, Ordinance 2026-14, first reading", "")
	require.NotNil(t, s)

	assert.Equal(t, "C-H", s.FromZone)
	assert.Equal(t, "PUD", s.ToZone)
	assert.Equal(t, "2026-14", s.OrdinanceNumber)
	assert.Equal(t, ReadingFirst, s.ReadingStage)
	assert.Equal(t, "1234 Douglas Ave", s.Address)
}

func TestExtractPartialFields(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  Signals
	}{
		{
			name:  "reading only",
			title: "Ordinance amendment, second reading",
			want:  Signals{ReadingStage: ReadingSecond},
		},
		{
			name:  "third and final",
			title: "Chapter 160 text amendment, third and final reading, Ordinance 2026-02",
			want:  Signals{ReadingStage: ReadingThird, OrdinanceNumber: "2026-02"},
		},
		{
			name:  "final maps to third",
			title: "Zoning amendment, final reading",
			want:  Signals{ReadingStage: ReadingThird},
		},
		{
			name:  "rezone without from keyword",
			title: "Rezone request, C-H to PUD",
			want:  Signals{FromZone: "C-H", ToZone: "PUD"},
		},
		{
			name:  "spaced zone dash is tightened",
			title: "Rezone property from C- H to R-1",
			want:  Signals{FromZone: "C-H", ToZone: "R-1"},
		},
		{
			name:  "address only",
			title: "Site plan for 10841 Douglas Parkway",
			want:  Signals{Address: "10841 Douglas Parkway"},
		},
		{
			name:  "nothing found",
			title: "Zoning discussion",
			want:  Signals{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.title, "")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestEmpty(t *testing.T) {
	assert.True(t, (*Signals)(nil).Empty())
	assert.True(t, (&Signals{}).Empty())
	assert.False(t, (&Signals{ToZone: "PUD"}).Empty())
}

func TestExtractUsesBodyText(t *testing.T) {
	s := Extract("Consider ordinance", "rezone parcel from A-R to R-3")
	assert.Equal(t, "A-R", s.FromZone)
	assert.Equal(t, "R-3", s.ToZone)
}
