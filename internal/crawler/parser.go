package crawler

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed page together with the URL its relative links
// resolve against.
type Document struct {
	*goquery.Document
	URL        string
	StatusCode int
}

// Resolve turns an href found on the page into an absolute URL, "" if it
// cannot be parsed or is empty.
func (d *Document) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	return resolveURL(d.URL, href)
}

// Links returns the resolved href of every anchor matching selector.
func (d *Document) Links(selector string) []string {
	var links []string
	d.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if absoluteURL := d.Resolve(href); absoluteURL != "" {
				links = append(links, absoluteURL)
			}
		}
	})
	return links
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads an HTML stream. baseURL must be the URL the body was served
// from after redirects.
func (p *Parser) Parse(r io.Reader, baseURL string, statusCode int) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{Document: doc, URL: baseURL, StatusCode: statusCode}, nil
}

// ParseString is a convenience for fixtures and rendered pages.
func (p *Parser) ParseString(raw, baseURL string) (*Document, error) {
	return p.Parse(strings.NewReader(raw), baseURL, 200)
}

// Utility to resolve relative URLs (e.g. "/about" -> "https://site.com/about")
func resolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(u).String()
}
