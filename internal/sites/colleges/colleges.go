// Package colleges reads the college listing, detail and tab pages of
// collegedekho.com.
package colleges

import (
	"edu-crawler/internal/crawler"
	"edu-crawler/internal/crawler/engine"
	"edu-crawler/pkg/models"
)

var (
	StartURLs      = []string{"https://www.collegedekho.com/engineering/colleges-in-india/"}
	AllowedDomains = []string{"collegedekho.com"}
)

type Spider struct{}

func New() *Spider { return &Spider{} }

func (*Spider) Name() string { return models.SiteColleges.String() }

func (*Spider) ParseListing(doc *crawler.Document) engine.ListingPage {
	return parseListing(doc)
}

func (*Spider) ParseDetail(doc *crawler.Document) engine.DetailPage {
	return parseDetail(doc)
}

func (*Spider) ParseTab(doc *crawler.Document, tab models.TabRef) engine.TabPage {
	return parseTab(doc, tab)
}
