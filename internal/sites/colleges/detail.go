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
	staticBlockSelector = `[class*="staticContent_staticContentBlcok"]`
	tabNavSelector      = ".container.mobileContainerNone ul li a"
)

var detailRules = extract.Rules{
	extract.Func("overviewTab", ".collegeDetailContainer", overview),
	extract.Func("highlights", `[class*="collegeHighlightsCard_collegeHighlightBox"]`, highlights),
	extract.Func("courses", `[class*="courseCard_courseCard"]`, courses),
	extract.Func("faqs", `[class*="accordion_accordionInner"]`, faqs),
}

func parseDetail(doc *crawler.Document) engine.DetailPage {
	page := engine.DetailPage{Fields: detailRules.Apply(doc.Selection)}
	doc.Find(tabNavSelector).Each(func(_ int, a *goquery.Selection) {
		title := strings.Join(extract.TextNodes(a), " ")
		href, _ := a.Attr("href")
		if title == "" || href == "" {
			return
		}
		page.Tabs = append(page.Tabs, models.TabRef{Title: title, URL: doc.Resolve(href)})
	})
	return page
}

// overview reads one section per detail container. Collapsed "read more"
// wrappers contribute their children instead of themselves.
func overview(blocks *goquery.Selection) any {
	sections := models.Sections{}
	blocks.Each(func(_ int, block *goquery.Selection) {
		title := extract.First(block, ".sectionHeadingSpace h2")
		var parts []*goquery.Selection
		block.Find(staticBlockSelector).Children().Each(func(_ int, child *goquery.Selection) {
			class, _ := child.Attr("class")
			if strings.Contains(class, "staticContent_hideContent") || strings.Contains(class, "BannerContent_readMore") {
				parts = append(parts, child.Children())
				return
			}
			parts = append(parts, child)
		})
		content := joinHTML(parts)
		if title == "" || content == "" {
			return
		}
		sections = sections.AppendUnique(models.Section{Title: title, Content: content})
	})
	return sections
}

func joinHTML(parts []*goquery.Selection) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(extract.HTML(part))
	}
	return strings.TrimSpace(b.String())
}

func highlights(boxes *goquery.Selection) any {
	out := models.Highlights{}
	boxes.Each(func(_ int, box *goquery.Selection) {
		key := extract.First(box, `[class*="collegeHighlightsCard_highlightName"]`)
		value := extract.First(box, `[class*="collegeHighlightsCard_highlightLabel"]`)
		if key == "" || value == "" {
			return
		}
		if _, ok := out[key]; !ok {
			out[key] = value
		}
	})
	return out
}

func courses(cards *goquery.Selection) any {
	out := models.Courses{}
	cards.Each(func(_ int, card *goquery.Selection) {
		course := models.Course{
			CourseTitle: extract.First(card, `[class*="courseName_courseHeading"] a`),
			Fees:        extract.First(card, `[class*="courseCardDetail_detailBoldText"]`),
			Duration:    extract.First(card, `[class*="courseCardDetail_courseDetailList"] div`),
			StudyMode:   extract.First(card, `[class*="courseCardDetail_courseDetailList"] div:nth-child(3)`),
			Eligibility: extract.First(card, `[class*="courseCardDetail_eligibilityText"]`),
		}
		card.Find(`[class*="courseCardDetail_detailBoldText"] span span[title]`).Each(func(_ int, s *goquery.Selection) {
			if title := strings.TrimSpace(s.AttrOr("title", "")); title != "" {
				course.OfferedCourses = append(course.OfferedCourses, title)
			}
		})
		out = out.AppendUnique(course)
	})
	return out
}

func faqs(items *goquery.Selection) any {
	out := models.FAQs{}
	items.Each(func(_ int, item *goquery.Selection) {
		question := extract.First(item, "h3")
		answer := extract.First(item, `[class*="accordion_content"] div`)
		if question == "" || answer == "" {
			return
		}
		out = out.AppendUnique(models.FAQ{Question: question, Answer: answer})
	})
	return out
}
