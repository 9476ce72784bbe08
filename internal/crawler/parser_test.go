package crawler

import (
	"strings"
	"testing"
)

func TestParser_Parse(t *testing.T) {

	p := NewParser()
	baseURL := "https://example.com/colleges/"

	rawHTML := `
		<!DOCTYPE html>
		<html>
		<head>
			<title>Test Listing Page</title>
		</head>
		<body>
			<div id="nav">
				<a href="/about">About Us</a>
				<a href="iitb">IIT Bombay</a>
				<a href="https://google.com">External Link</a>
				<a>No href</a>
			</div>
		</body>
		</html>
	`
	doc, err := p.Parse(strings.NewReader(rawHTML), baseURL, 200)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expectedTitle := "Test Listing Page"
	if got := doc.Find("title").Text(); got != expectedTitle {
		t.Errorf("Title mismatch.\nExpected: %q\nGot: %q", expectedTitle, got)
	}

	expectedLinks := []string{
		"https://example.com/about", // The relative link resolved
		"https://example.com/colleges/iitb",
		"https://google.com",
	}

	links := doc.Links("#nav a")
	if len(links) != len(expectedLinks) {
		t.Fatalf("Link count mismatch. Expected %d, got %d", len(expectedLinks), len(links))
	}
	for i, link := range links {
		if link != expectedLinks[i] {
			t.Errorf("Link index %d mismatch.\nExpected: %s\nGot:      %s", i, expectedLinks[i], link)
		}
	}
}

func TestDocument_Resolve(t *testing.T) {
	doc, err := NewParser().ParseString("<html></html>", "https://example.com/a/b")
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Resolve(" ?page=2 "); got != "https://example.com/a/b?page=2" {
		t.Errorf("unexpected resolution %q", got)
	}
	if got := doc.Resolve(""); got != "" {
		t.Errorf("empty href should resolve to empty, got %q", got)
	}
}
