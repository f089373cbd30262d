// Package agenda parses rendered CivicWeb agenda HTML into structured
// agenda items and document references. Parsing is a pure function of the
// input markup: no I/O, no randomness, so identical input always yields
// identical output and stored raw payloads can be re-parsed offline.
package agenda

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/civicwatch/civicwatch/pkg/textutil"
)

var (
	// Dotted hierarchical item numbers: "6.17" or "6.17."
	itemKeyRE = regexp.MustCompile(`^\s*(\d+(?:\.\d+)+)\.?\s*$`)

	// Section headings look like "CONSENT AGENDA" or "CITIZENS' FORUM".
	sectionLikeRE = regexp.MustCompile(`^[A-Z0-9' &\-]{4,}$`)
)

// DocumentRef is one attachment reference extracted from an agenda link.
type DocumentRef struct {
	DocumentID int64
	Title      string
	URL        string
	Handle     string
}

// Item is one agenda item draft: no topics or zoning signals yet, those are
// attached downstream by the classifiers.
type Item struct {
	ItemKey     string
	Section     string
	Title       string
	Attachments []DocumentRef
}

// Agenda is the parse result: ordered items plus the flat, deduplicated
// document list.
type Agenda struct {
	Items     []Item
	Documents []DocumentRef
}

// Parser parses agenda markup for one CivicWeb instance. BaseURL resolves
// relative attachment links.
type Parser struct {
	baseURL string
}

// NewParser creates a Parser resolving relative links against baseURL.
func NewParser(baseURL string) *Parser {
	return &Parser{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Parse extracts agenda items and document references from rendered agenda
// markup. Malformed sub-elements are skipped, never fatal: rows without a
// recognizable dotted item key are still emitted (with a sequential
// fallback key) when they carry an attachment link, so no referenced
// document is silently lost.
func (p *Parser) Parse(markup string) (*Agenda, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse agenda markup: %w", err)
	}

	out := &Agenda{}
	currentSection := ""
	fallbackSeq := 0
	seenDocs := make(map[int64]bool)

	for _, tbl := range findAll(root, "table") {
		// Section headings commonly appear as a bold uppercase label in
		// their own table.
		if bold := findFirst(tbl, "b", "strong"); bold != nil {
			candidate := textutil.Normalize(nodeText(bold))
			if candidate != "" && candidate != "AGENDA" &&
				len(candidate) <= 40 && sectionLikeRE.MatchString(candidate) {
				currentSection = candidate
			}
		}

		for _, tr := range findAll(tbl, "tr") {
			item, ok := p.parseRow(tr, currentSection, &fallbackSeq)
			if !ok {
				continue
			}
			out.Items = append(out.Items, item)
			for _, att := range item.Attachments {
				if !seenDocs[att.DocumentID] {
					seenDocs[att.DocumentID] = true
					out.Documents = append(out.Documents, att)
				}
			}
		}
	}

	return out, nil
}

// parseRow turns one table row into an agenda item draft.
func (p *Parser) parseRow(tr *html.Node, section string, fallbackSeq *int) (Item, bool) {
	tds := findAll(tr, "td")
	if len(tds) < 2 {
		return Item{}, false
	}

	itemKey := ""
	keyIdx := -1
	for i, td := range tds {
		if m := itemKeyRE.FindStringSubmatch(textutil.Normalize(nodeText(td))); m != nil {
			itemKey = m[1]
			keyIdx = i
			break
		}
	}

	// Title is usually in a later cell; pick the longest non-key cell text.
	title := ""
	titleIdx := -1
	for i, td := range tds {
		if i == keyIdx {
			continue
		}
		text := textutil.Normalize(nodeText(td))
		if len(text) > len(title) {
			title = text
			titleIdx = i
		}
	}
	if title == "" {
		return Item{}, false
	}

	var attachments []DocumentRef
	if titleIdx >= 0 {
		attachments = p.parseAttachments(tds[titleIdx], title)
	}

	if itemKey == "" {
		// No dotted number. Keep the row only when it references a
		// document, otherwise it is layout noise. Keyless rows without
		// attachments are dropped entirely rather than emitted under a
		// fallback key; kept ones get a sequential item-N key.
		if len(attachments) == 0 {
			return Item{}, false
		}
		*fallbackSeq++
		itemKey = fmt.Sprintf("item-%d", *fallbackSeq)
	}

	return Item{
		ItemKey:     itemKey,
		Section:     section,
		Title:       title,
		Attachments: attachments,
	}, true
}

// parseAttachments extracts /document/{id} links from a title cell.
// Malformed links are skipped, not fatal.
func (p *Parser) parseAttachments(td *html.Node, fallbackTitle string) []DocumentRef {
	var refs []DocumentRef
	for _, a := range findAll(td, "a") {
		href := attr(a, "href")
		if href == "" || !strings.Contains(href, "/document/") {
			continue
		}

		absolute := p.absURL(href)
		parsed, err := url.Parse(absolute)
		if err != nil {
			continue
		}

		docID, ok := documentIDFromPath(parsed.Path)
		if !ok {
			continue
		}

		title := textutil.Normalize(nodeText(a))
		if title == "" {
			title = fallbackTitle
		}

		refs = append(refs, DocumentRef{
			DocumentID: docID,
			Title:      title,
			URL:        absolute,
			Handle:     parsed.Query().Get("handle"),
		})
	}
	return refs
}

// documentIDFromPath pulls the numeric id out of /document/{id}/... paths.
func documentIDFromPath(path string) (int64, bool) {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part != "document" || i+1 >= len(parts) {
			continue
		}
		id, err := strconv.ParseInt(parts[i+1], 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

func (p *Parser) absURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return p.baseURL + href
}

// findAll returns all descendant elements with the given tag, in document
// order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// findFirst returns the first descendant element matching any of the tags.
func findFirst(n *html.Node, tags ...string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if found != nil {
			return
		}
		if node.Type == html.ElementNode {
			for _, tag := range tags {
				if node.Data == tag {
					found = node
					return
				}
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

// attr returns the value of the named attribute on n, or "" if absent.
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// nodeText concatenates all descendant text nodes separated by spaces.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
