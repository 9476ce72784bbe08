package colleges

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"edu-crawler/internal/crawler"
	"edu-crawler/internal/crawler/engine"
	"edu-crawler/internal/extract"
	"edu-crawler/pkg/models"
)

const (
	classReadSelector  = `[class*="collegeDetail_classRead"]`
	facilitiesSelector = `[class*="collegeDetail_facilities"] ul li p`
	loadMoreSelector   = `[class*="loadMore_loadMoreBlock"] a, a[class*="loadMore_loadMoreBlock"]`
)

func parseTab(doc *crawler.Document, tab models.TabRef) engine.TabPage {
	page := engine.TabPage{Content: models.NewTabContent(tab.Title)}

	doc.Find(".block.box").Each(func(_ int, block *goquery.Selection) {
		title := extract.First(block, "h2")
		var parts []*goquery.Selection
		block.Find(classReadSelector).Children().Each(func(_ int, child *goquery.Selection) {
			class, _ := child.Attr("class")
			if goquery.NodeName(child) == "span" && strings.Contains(class, "collegeDetail_overview") {
				parts = append(parts, child.Children())
				return
			}
			parts = append(parts, child)
		})
		content := joinHTML(parts)
		if title == "" || content == "" {
			return
		}
		page.Content.Content = page.Content.Content.AppendUnique(models.Section{Title: title, Content: content})
	})

	if strings.Contains(strings.ToLower(tab.Title), "campus") {
		for _, facility := range extract.All(doc.Selection, facilitiesSelector) {
			page.Content.Facilities = page.Content.Facilities.AppendUnique(facility)
		}
	}

	if links := doc.Links(loadMoreSelector); len(links) > 0 {
		page.Next = links[0]
	}
	return page
}
