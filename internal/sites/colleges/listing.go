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
	cardSelector       = "div.collegeCardBox.col-md-12:not(.listingCard)"
	nestedCardSelector = "div.collegeCardBox.listingCard.col-md-12 div.collegeCardBox.col-md-12"
	titleSelector      = "div.titleSection h3 a"
	infoSelector       = "div.collegeinfo ul.info li"
	nextPageSelector   = "li.round a"
)

var cardRules = extract.Rules{
	extract.Text("title", titleSelector, extract.Title),
	extract.Func("city", infoSelector+":nth-child(2)", locationPart(0)),
	extract.Func("state", infoSelector+":nth-child(2)", locationPart(1)),
	extract.Func("ownership", infoSelector, ownership),
	extract.Text("ranking", infoSelector+" b span", extract.StripHash),
	extract.Text("rank_publisher", infoSelector+" b", extract.FirstWord),
	extract.Text("fees", `div.fessSection li img[src*="rupeeListing"] + p`),
	extract.Text("accreditation", `div.fessSection li img[src*="batch"] + p`),
	extract.Text("avg_package", `div.fessSection li img[src*="symbol"] + p`),
	extract.Func("exams", `div.fessSection li img[src*="exam."]`, exams),
	extract.Text("description", "div.content.ReadMore"),
}

// parseListing unions the primary cards with the cards nested in listing
// blocks and keeps the first card seen for each title.
func parseListing(doc *crawler.Document) engine.ListingPage {
	var page engine.ListingPage
	seen := make(map[models.EntityKey]bool)

	cards := doc.Find(cardSelector).AddSelection(doc.Find(nestedCardSelector))
	cards.Each(func(_ int, card *goquery.Selection) {
		key := models.NewEntityKey(extract.First(card, titleSelector))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true

		href, _ := card.Find(titleSelector).First().Attr("href")
		page.Entities = append(page.Entities, engine.Entity{
			Key:       key,
			DetailURL: doc.Resolve(href),
			Fields:    cardRules.Apply(card),
		})
	})

	if links := doc.Links(nextPageSelector); len(links) > 0 {
		page.Next = links[0]
	}
	return page
}

// locationPart reads "City, State".
func locationPart(i int) extract.Value {
	return func(sel *goquery.Selection) any {
		location := strings.TrimSpace(extract.OwnText(sel.First()))
		if location == "" {
			return (*string)(nil)
		}
		parts := strings.SplitN(location, ",", 2)
		if i >= len(parts) {
			return (*string)(nil)
		}
		return models.Text(strings.TrimSpace(parts[i]))
	}
}

// ownership is the last text of the info item carrying the flag icon.
func ownership(items *goquery.Selection) any {
	var value *string
	items.EachWithBreak(func(_ int, li *goquery.Selection) bool {
		src, _ := li.Find("img").Attr("src")
		if !strings.Contains(src, "flag") {
			return true
		}
		if texts := extract.TextNodes(li); len(texts) > 0 {
			value = models.Text(texts[len(texts)-1])
		}
		return false
	})
	return value
}

// exams is the primary exam next to the icon plus the exams of its
// tooltip. The result is a set and is never nil.
func exams(icon *goquery.Selection) any {
	set := models.NewStringSet()
	icon = icon.First()
	if icon.Length() == 0 {
		return set
	}
	icon.NextAllFiltered("p").First().Each(func(_ int, p *goquery.Selection) {
		if texts := extract.TextNodes(p); len(texts) > 0 {
			set[texts[0]] = struct{}{}
		}
	})
	tooltip := strings.TrimSpace(icon.NextAllFiltered("div.tooltip").Find("span.hover").First().Text())
	for _, exam := range extract.SplitList(tooltip) {
		set[exam] = struct{}{}
	}
	return set
}
