package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractSVGTexts pulls the visible text nodes out of a rendered diagram
// page. Diagram labels are SVG <text> elements, often split into <tspan>
// fragments; both are collected in document order. Fragments shorter
// than three characters are layout artifacts and dropped, duplicates are
// collapsed keeping the first occurrence.
func extractSVGTexts(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var texts []string
	seen := make(map[string]struct{})

	doc.Find("svg text, svg tspan").Each(func(_ int, sel *goquery.Selection) {
		// A <text> wrapping tspans repeats its children's content; take
		// leaf nodes only.
		if sel.Children().Length() > 0 {
			return
		}
		t := strings.TrimSpace(sel.Text())
		if len(t) <= 2 {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		texts = append(texts, t)
	})

	return texts
}
