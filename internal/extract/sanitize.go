package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripAnchors removes every <a> element together with its content from an
// HTML fragment. All other markup is rendered back unchanged.
func StripAnchors(fragment string) string {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return fragment
	}
	var b strings.Builder
	for _, n := range nodes {
		removeAnchors(n)
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			continue
		}
		if err := html.Render(&b, n); err != nil {
			return fragment
		}
	}
	return b.String()
}

func removeAnchors(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.DataAtom == atom.A {
			n.RemoveChild(c)
		} else {
			removeAnchors(c)
		}
		c = next
	}
}

// HTML concatenates the outer HTML of every node in sel with anchors
// stripped, trimmed. Returns "" for an empty selection.
func HTML(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Each(func(_ int, s *goquery.Selection) {
		raw, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		b.WriteString(StripAnchors(raw))
	})
	return strings.TrimSpace(b.String())
}
