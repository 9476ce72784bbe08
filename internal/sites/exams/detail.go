package exams

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"edu-crawler/internal/crawler"
	"edu-crawler/internal/crawler/engine"
	"edu-crawler/internal/extract"
	"edu-crawler/pkg/models"
)

// htmlSections maps the record field of each description block to the id
// of its container on the page.
var htmlSections = []struct {
	field string
	id    string
}{
	{"eligibility_criteria", "Eligibility_Criteria"},
	{"application_process", "Application_Process"},
	{"preparation_tips", "Preparation_Tips"},
	{"admit_card", "Admit_Card"},
	{"cutoffs", "Cutoff"},
	{"counselling_process", "Counselling_Process"},
	{"exam_pattern", "Exam_Pattern"},
}

var detailRules = func() extract.Rules {
	rules := extract.Rules{
		extract.Func("about_exam", "div#about", about),
		extract.Func("highlights", "div#highlights table tr", highlights),
	}
	for _, s := range htmlSections {
		rules = append(rules, extract.Func(s.field, "div#"+s.id, section(s.id)))
	}
	return append(rules,
		extract.Func("syllabus", "div.syllabus_accordian", syllabus),
		extract.Func("documents_required", "div#documents_required_counselling, div#documents_required", documents),
		extract.Func("faqs", "div.qna_question_box", faqs),
	)
}()

func parseDetail(doc *crawler.Document) engine.DetailPage {
	fields := detailRules.Apply(doc.Selection)
	return engine.DetailPage{Fields: fields}
}

func about(block *goquery.Selection) any {
	if block.Length() == 0 {
		return nil
	}
	heading := extract.First(block, ".common_heading h2")
	description := extract.HTML(block.Find(".description-block").First())
	if heading == "" && description == "" {
		return nil
	}
	return models.ExamSection{ID: "about", Heading: models.Text(heading), HTML: models.Text(description)}
}

func section(id string) extract.Value {
	return func(block *goquery.Selection) any {
		content := extract.HTML(block.First().Find(".description-block").First())
		if content == "" {
			return nil
		}
		return models.ExamSection{ID: strings.ToLower(id), HTML: models.Text(content)}
	}
}

func highlights(rows *goquery.Selection) any {
	out := models.Highlights{}
	rows.Each(func(_ int, row *goquery.Selection) {
		key := extract.First(row, "td.bold")
		value := extract.First(row, "td div")
		if key == "" || value == "" {
			return
		}
		if _, ok := out[key]; !ok {
			out[key] = value
		}
	})
	return out
}

func syllabus(accordions *goquery.Selection) any {
	out := models.Syllabus{}
	accordions.Each(func(_ int, accordion *goquery.Selection) {
		exam := models.SyllabusExam{
			MainExamTitle: extract.First(accordion, "span.main-exam"),
			Subjects:      []models.SyllabusSubject{},
		}
		accordion.Find("div.accordion-item").Each(func(_ int, item *goquery.Selection) {
			subject := models.SyllabusSubject{
				Name:  models.Text(extract.First(item, "span.syllabus_subject_name")),
				Units: []models.SyllabusUnit{},
			}
			item.Find("div.accordion-body div.border_bottom").Each(func(_ int, unit *goquery.Selection) {
				topics, _ := goquery.OuterHtml(unit.Find("ul").First())
				subject.Units = append(subject.Units, models.SyllabusUnit{
					Unit:       models.Text(extract.First(unit, "p.ed_syllabus_unit")),
					Heading:    models.Text(extract.First(unit, "a.syllabus-heading-unit")),
					TopicsHTML: models.Text(strings.TrimSpace(topics)),
				})
			})
			exam.Subjects = append(exam.Subjects, subject)
		})
		out = append(out, exam)
	})
	return out
}

func documents(blocks *goquery.Selection) any {
	block := blocks.First()
	if block.Length() == 0 {
		return nil
	}
	docs := models.Documents{
		Heading:   models.Text(extract.First(block, "h2.title-block")),
		Documents: models.Strings{},
	}
	docs.Documents = docs.Documents.AppendUnique(extract.All(block, "ul li")...)
	return docs
}

func faqs(boxes *goquery.Selection) any {
	out := models.FAQs{}
	boxes.Each(func(_ int, box *goquery.Selection) {
		question := extract.First(box, "div.qna_question_heading span:nth-of-type(2)")
		answer := extract.First(box, "div.faq_question div p")
		if question == "" || answer == "" {
			return
		}
		out = out.AppendUnique(models.FAQ{Question: question, Answer: answer})
	})
	return out
}
