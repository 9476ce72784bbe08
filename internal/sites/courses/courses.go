// Package courses reads the course catalogue of collegedekho.com. Course
// pages have no tabs.
package courses

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"edu-crawler/internal/crawler"
	"edu-crawler/internal/crawler/engine"
	"edu-crawler/internal/extract"
	"edu-crawler/pkg/models"
)

var (
	StartURLs      = []string{"https://www.collegedekho.com/courses/"}
	AllowedDomains = []string{"collegedekho.com"}
)

var listingRules = extract.Rules{
	extract.Text("title", "h2 a", extract.Title),
	extract.Func("average_duration", "li", labelled("Average Duration")),
	extract.Func("average_fees", "li", labelled("Average Fees")),
}

var detailRules = extract.Rules{
	extract.Text("description", `[class*="snippet_caption"] p`),
	extract.Func("sections", ".block", sections),
}

type Spider struct{}

func New() *Spider { return &Spider{} }

func (*Spider) Name() string { return models.SiteCourses.String() }

func (*Spider) ParseListing(doc *crawler.Document) engine.ListingPage {
	var page engine.ListingPage
	seen := make(map[models.EntityKey]bool)
	doc.Find(".course_list").Each(func(_ int, item *goquery.Selection) {
		key := models.NewEntityKey(extract.First(item, "h2 a"))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		href, _ := item.Find("h2 a").First().Attr("href")
		page.Entities = append(page.Entities, engine.Entity{
			Key:       key,
			DetailURL: doc.Resolve(href),
			Fields:    listingRules.Apply(item),
		})
	})
	if links := doc.Links(`li.round a, a[rel="next"]`); len(links) > 0 {
		page.Next = links[0]
	}
	return page
}

func (*Spider) ParseDetail(doc *crawler.Document) engine.DetailPage {
	return engine.DetailPage{Fields: detailRules.Apply(doc.Selection)}
}

func (*Spider) ParseTab(_ *crawler.Document, tab models.TabRef) engine.TabPage {
	return engine.TabPage{Content: models.NewTabContent(tab.Title)}
}

// labelled reads the <span> of the list item whose text mentions label.
func labelled(label string) extract.Value {
	return func(items *goquery.Selection) any {
		var value *string
		items.EachWithBreak(func(_ int, li *goquery.Selection) bool {
			if !strings.Contains(li.Text(), label) {
				return true
			}
			value = models.Text(extract.First(li, "span"))
			return false
		})
		return value
	}
}

func sections(blocks *goquery.Selection) any {
	out := models.Sections{}
	blocks.Each(func(_ int, block *goquery.Selection) {
		title := extract.First(block, "h2")
		content := extract.HTML(block.Find(`[class*="collegeDetail_overview"]`).First())
		if title == "" || content == "" {
			return
		}
		out = out.AppendUnique(models.Section{Title: title, Content: content})
	})
	return out
}
