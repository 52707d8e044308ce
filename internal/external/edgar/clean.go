package edgar

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	whitespaceRun = regexp.MustCompile(`[ \t\x{00a0}]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)

	// 8-K item headers, e.g. "Item 5.02" or "ITEM 2.04.".
	itemHeader = regexp.MustCompile(`(?im)^\s*item\s+(\d+\.\d{2})\b\.?`)
)

// CleanFilingHTML strips a filing document down to its prose. Script,
// style and hidden XBRL blocks are dropped; the remaining text keeps
// paragraph breaks so sentence boundaries survive for evidence location.
func CleanFilingHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Not HTML at all; treat the input as plain text.
		return normalize(html)
	}

	doc.Find("script, style, ix\\:header").Remove()

	var b strings.Builder
	doc.Find("p, div, td, li, h1, h2, h3, h4, span").Each(func(_ int, sel *goquery.Selection) {
		// Only leaf-ish nodes: taking text from containers would duplicate
		// every nested paragraph.
		if sel.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n")
	})

	if b.Len() == 0 {
		return normalize(doc.Text())
	}
	return normalize(b.String())
}

func normalize(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ItemSection is one "Item N.NN" block of an 8-K.
type ItemSection struct {
	Number string
	Text   string
}

// SectionItems splits cleaned 8-K text on its item headers. Text before
// the first header is dropped; filings without headers yield nil.
func SectionItems(text string) []ItemSection {
	matches := itemHeader.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	sections := make([]ItemSection, 0, len(matches))
	for i, m := range matches {
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, ItemSection{
			Number: text[m[2]:m[3]],
			Text:   strings.TrimSpace(text[start:end]),
		})
	}
	return sections
}
