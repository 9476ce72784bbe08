package engine

import (
	"context"

	"edu-crawler/internal/crawler"
	"edu-crawler/pkg/models"
)

// Entity is one card found on a listing page.
type Entity struct {
	Key models.EntityKey
	// DetailURL is absolute, "" when the card has no detail link.
	DetailURL string
	Fields    models.Fields
}

// ListingPage holds the cards of one listing page, already deduplicated
// within the page, in document order.
type ListingPage struct {
	Entities []Entity
	Next     string
}

type DetailPage struct {
	Fields models.Fields
	// Tabs is the raw sub-navigation; the engine filters it into a plan.
	Tabs []models.TabRef
}

type TabPage struct {
	Content models.TabContent
	// Next is the tab's "load more" link, "" on the last page.
	Next string
}

// Spider knows the layout of one site. Its methods never fail: content
// missing from a page comes back as nil fields.
type Spider interface {
	Name() string
	ParseListing(doc *crawler.Document) ListingPage
	ParseDetail(doc *crawler.Document) DetailPage
	ParseTab(doc *crawler.Document, tab models.TabRef) TabPage
}

// Sink defines how to persist finalized records.
type Sink interface {
	Save(ctx context.Context, batch []*models.Record) error
	Close() error
}
