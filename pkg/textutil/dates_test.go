package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLongDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "single digit day", input: "January 2, 2026", want: "2026-01-02", wantOK: true},
		{name: "double digit day", input: "February 18, 2026", want: "2026-02-18", wantOK: true},
		{name: "lowercase", input: "march 3, 2026", want: "2026-03-03", wantOK: true},
		{name: "not a date", input: "Ordinance 2026-14", wantOK: false},
		{name: "bad month", input: "Febtober 1, 2026", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLongDate(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindLongDate(t *testing.T) {
	assert.Equal(t, "2026-02-18", FindLongDate("City Council Minutes - February 18, 2026 - Approved"))
	assert.Equal(t, "", FindLongDate("City Council Minutes"))
	assert.Equal(t, "2026-01-05", FindLongDate("continued from January 5, 2026 to January 19, 2026"))
}
