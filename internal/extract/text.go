package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// OwnText returns the text nodes that are direct children of the first
// node in sel, the way a "::text" pseudo-selector reads them.
func OwnText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for c := sel.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// TextNodes lists every non-blank descendant text node of sel, trimmed.
func TextNodes(sel *goquery.Selection) []string {
	var out []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				out = append(out, text)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range sel.Nodes {
		visit(n)
	}
	return out
}

// First returns the trimmed own text of the first match of selector under
// sel, "" when nothing matches.
func First(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(OwnText(sel.Find(selector).First()))
}

// All returns the trimmed own text of every match, skipping blanks.
func All(sel *goquery.Selection, selector string) []string {
	var out []string
	sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(OwnText(s)); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// Joined concatenates all descendant text of the first match, the way the
// exam listings spread one value over several inline elements.
func Joined(sel *goquery.Selection) string {
	return Collapse(strings.TrimSpace(sel.First().Text()))
}
