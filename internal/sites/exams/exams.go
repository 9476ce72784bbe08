// Package exams reads the entrance exam listings of careers360.com.
package exams

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"edu-crawler/internal/crawler"
	"edu-crawler/internal/crawler/engine"
	"edu-crawler/internal/extract"
	"edu-crawler/pkg/models"
)

var (
	StartURLs      = []string{"https://law.careers360.com/exams"}
	AllowedDomains = []string{"careers360.com"}
)

// examNamespace seeds the exam ids, which are derived from the exam name
// so that re-crawling an exam yields the same id.
var examNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://careers360.com/exams"))

// attributeIcons maps the icon file of an attribute row to its field.
var attributeIcons = []struct {
	icon  string
	field string
}{
	{"offline.svg", "exam_type"},
	{"exam.svg", "exam_level"},
	{"festingage.svg", "conducting_body"},
	{"acceptingcollege.svg", "accepting_colleges"},
	{"seats.svg", "total_applications"},
}

const (
	nameSelector = ".school_infooo .title .school_Name a"
	linkSelector = ".school_infooo .title a"
)

type Spider struct{}

func New() *Spider { return &Spider{} }

func (*Spider) Name() string { return models.SiteExams.String() }

func (*Spider) ParseListing(doc *crawler.Document) engine.ListingPage {
	var page engine.ListingPage
	seen := make(map[models.EntityKey]bool)
	doc.Find("div.examListing_card").Each(func(_ int, card *goquery.Selection) {
		name := extract.Joined(card.Find(nameSelector))
		key := models.NewEntityKey(name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true

		fields := models.Fields{
			{Name: "exam_id", Value: ExamID(key)},
			{Name: "exam_name", Value: string(key)},
		}
		fields = append(fields, attributes(card)...)
		links := models.Strings{}
		card.Find("div.group a[href]").Each(func(_ int, a *goquery.Selection) {
			if link := doc.Resolve(a.AttrOr("href", "")); link != "" {
				links = links.AppendUnique(link)
			}
		})
		fields = append(fields, models.Field{Name: "application_link", Value: links})

		href, _ := card.Find(linkSelector).First().Attr("href")
		page.Entities = append(page.Entities, engine.Entity{
			Key:       key,
			DetailURL: doc.Resolve(href),
			Fields:    fields,
		})
	})
	if links := doc.Links("a.pagination_list_last"); len(links) > 0 {
		page.Next = links[0]
	}
	return page
}

// attributes reads the icon-keyed rows of a listing card. Rows that are
// missing come back as nil.
func attributes(card *goquery.Selection) models.Fields {
	values := make(map[string]*string, len(attributeIcons))
	card.Find(".school_infooo .offline li").Each(func(_ int, li *goquery.Selection) {
		src := li.Find("img").AttrOr("src", "")
		for _, a := range attributeIcons {
			if strings.HasSuffix(src, "/"+a.icon) || src == a.icon {
				if _, done := values[a.field]; !done {
					values[a.field] = models.Text(extract.Joined(li))
				}
				return
			}
		}
	})
	fields := make(models.Fields, 0, len(attributeIcons))
	for _, a := range attributeIcons {
		fields = append(fields, models.Field{Name: a.field, Value: values[a.field]})
	}
	return fields
}

func (*Spider) ParseDetail(doc *crawler.Document) engine.DetailPage {
	return parseDetail(doc)
}

func (*Spider) ParseTab(_ *crawler.Document, tab models.TabRef) engine.TabPage {
	return engine.TabPage{Content: models.NewTabContent(tab.Title)}
}

// ExamID is the stable id of an exam.
func ExamID(key models.EntityKey) string {
	return uuid.NewSHA1(examNamespace, []byte(key)).String()
}
