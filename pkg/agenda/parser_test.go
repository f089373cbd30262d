package agenda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAgenda = `
<html><body>
<table><tr><td><b>AGENDA</b></td></tr></table>
<table>
  <tr><td><strong>CONSENT AGENDA</strong></td></tr>
  <tr>
    <td>6.1</td>
    <td>Approval of Bill Lists</td>
  </tr>
  <tr>
    <td>6.17</td>
    <td>Rezone 1234 Douglas Ave from C-H to PUD, Ordinance 2026-14, first reading
      <a href="/document/148134/Ordinance%202026-14.pdf?handle=AB12CD">Ordinance 2026-14</a>
    </td>
  </tr>
</table>
<table>
  <tr><td><b>REPORTS</b></td></tr>
  <tr>
    <td>7.2</td>
    <td>Meeting Minutes - February 3, 2026
      <a href="https://urbandale.civicweb.net/document/148200?handle=ZZ99">Minutes</a>
    </td>
  </tr>
</table>
</body></html>`

func newTestParser() *Parser {
	return NewParser("https://urbandale.civicweb.net")
}

func TestParseItemsAndSections(t *testing.T) {
	agenda, err := newTestParser().Parse(sampleAgenda)
	require.NoError(t, err)
	require.Len(t, agenda.Items, 3)

	first := agenda.Items[0]
	assert.Equal(t, "6.1", first.ItemKey)
	assert.Equal(t, "CONSENT AGENDA", first.Section)
	assert.Equal(t, "Approval of Bill Lists", first.Title)
	assert.Empty(t, first.Attachments)

	second := agenda.Items[1]
	assert.Equal(t, "6.17", second.ItemKey)
	assert.Equal(t, "CONSENT AGENDA", second.Section)
	assert.Contains(t, second.Title, "Rezone 1234 Douglas Ave")

	third := agenda.Items[2]
	assert.Equal(t, "7.2", third.ItemKey)
	assert.Equal(t, "REPORTS", third.Section)
}

func TestParseAttachments(t *testing.T) {
	agenda, err := newTestParser().Parse(sampleAgenda)
	require.NoError(t, err)

	atts := agenda.Items[1].Attachments
	require.Len(t, atts, 1)
	assert.Equal(t, int64(148134), atts[0].DocumentID)
	assert.Equal(t, "Ordinance 2026-14", atts[0].Title)
	assert.Equal(t, "AB12CD", atts[0].Handle)
	assert.Equal(t, "https://urbandale.civicweb.net/document/148134/Ordinance%202026-14.pdf?handle=AB12CD", atts[0].URL)

	// Absolute URLs pass through untouched.
	atts = agenda.Items[2].Attachments
	require.Len(t, atts, 1)
	assert.Equal(t, int64(148200), atts[0].DocumentID)
	assert.Equal(t, "ZZ99", atts[0].Handle)

	// Flat document list covers both.
	require.Len(t, agenda.Documents, 2)
}

func TestParseSkipsMalformedLinks(t *testing.T) {
	markup := `<table>
	  <tr><td>3.1</td><td>Report
	    <a href="/document/not-a-number?handle=X">bad id</a>
	    <a href="/somewhere/else">not a document</a>
	  </td></tr>
	</table>`

	agenda, err := newTestParser().Parse(markup)
	require.NoError(t, err)
	require.Len(t, agenda.Items, 1)
	assert.Empty(t, agenda.Items[0].Attachments)
}

func TestParseRowWithoutKeyButWithAttachmentGetsFallbackKey(t *testing.T) {
	markup := `<table>
	  <tr><td></td><td>Unnumbered attachment row
	    <a href="/document/99?handle=H">doc</a>
	  </td></tr>
	  <tr><td></td><td>Pure layout row with no documents</td></tr>
	</table>`

	agenda, err := newTestParser().Parse(markup)
	require.NoError(t, err)
	require.Len(t, agenda.Items, 1)
	assert.Equal(t, "item-1", agenda.Items[0].ItemKey)
	assert.Equal(t, "", agenda.Items[0].Section)
}

func TestParseItemsWithoutSectionHeading(t *testing.T) {
	markup := `<table><tr><td>1.1</td><td>Call to Order</td></tr></table>`

	agenda, err := newTestParser().Parse(markup)
	require.NoError(t, err)
	require.Len(t, agenda.Items, 1)
	assert.Equal(t, "", agenda.Items[0].Section)
}

func TestParseIsDeterministic(t *testing.T) {
	a, err := newTestParser().Parse(sampleAgenda)
	require.NoError(t, err)
	b, err := newTestParser().Parse(sampleAgenda)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseEmptyMarkup(t *testing.T) {
	agenda, err := newTestParser().Parse("")
	require.NoError(t, err)
	assert.Empty(t, agenda.Items)
	assert.Empty(t, agenda.Documents)
}
