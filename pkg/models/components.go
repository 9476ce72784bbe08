package models

import (
	"encoding/json"
	"sort"
)

// List and map values below are never modified in place once stored in a
// Record. merge always returns a fresh value, which is what makes
// Record.Clone cheap.
type mergeable interface {
	merge(incoming any) (any, bool)
	empty() bool
}

type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Sections []Section

func (s Sections) Has(title string) bool {
	for _, item := range s {
		if item.Title == title {
			return true
		}
	}
	return false
}

// AppendUnique returns a copy of s extended with the items whose title is
// not already present. Items without a title are dropped.
func (s Sections) AppendUnique(items ...Section) Sections {
	out := make(Sections, len(s), len(s)+len(items))
	copy(out, s)
	for _, item := range items {
		if item.Title == "" || out.Has(item.Title) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (s Sections) merge(incoming any) (any, bool) {
	in, ok := incoming.(Sections)
	if !ok {
		return s, false
	}
	return s.AppendUnique(in...), true
}

func (s Sections) empty() bool { return len(s) == 0 }

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type FAQs []FAQ

func (f FAQs) Has(question string) bool {
	for _, item := range f {
		if item.Question == question {
			return true
		}
	}
	return false
}

func (f FAQs) AppendUnique(items ...FAQ) FAQs {
	out := make(FAQs, len(f), len(f)+len(items))
	copy(out, f)
	for _, item := range items {
		if item.Question == "" || out.Has(item.Question) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (f FAQs) merge(incoming any) (any, bool) {
	in, ok := incoming.(FAQs)
	if !ok {
		return f, false
	}
	return f.AppendUnique(in...), true
}

func (f FAQs) empty() bool { return len(f) == 0 }

type Course struct {
	CourseTitle    string   `json:"course_title"`
	Fees           string   `json:"fees,omitempty"`
	Duration       string   `json:"duration,omitempty"`
	StudyMode      string   `json:"study_mode,omitempty"`
	Eligibility    string   `json:"eligibility,omitempty"`
	OfferedCourses []string `json:"offered_courses,omitempty"`
}

type Courses []Course

func (c Courses) Has(title string) bool {
	for _, item := range c {
		if item.CourseTitle == title {
			return true
		}
	}
	return false
}

func (c Courses) AppendUnique(items ...Course) Courses {
	out := make(Courses, len(c), len(c)+len(items))
	copy(out, c)
	for _, item := range items {
		if item.CourseTitle == "" || out.Has(item.CourseTitle) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (c Courses) merge(incoming any) (any, bool) {
	in, ok := incoming.(Courses)
	if !ok {
		return c, false
	}
	return c.AppendUnique(in...), true
}

func (c Courses) empty() bool { return len(c) == 0 }

// Strings is an ordered list of plain values (facilities, links, documents)
// without repeats.
type Strings []string

func (s Strings) Has(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

func (s Strings) AppendUnique(items ...string) Strings {
	out := make(Strings, len(s), len(s)+len(items))
	copy(out, s)
	for _, item := range items {
		if item == "" || out.Has(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (s Strings) merge(incoming any) (any, bool) {
	in, ok := incoming.(Strings)
	if !ok {
		return s, false
	}
	return s.AppendUnique(in...), true
}

func (s Strings) empty() bool { return len(s) == 0 }

func (s Strings) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// StringSet is unordered. It is rendered sorted so output is stable.
type StringSet map[string]struct{}

func NewStringSet(items ...string) StringSet {
	set := make(StringSet, len(items))
	for _, item := range items {
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) merge(incoming any) (any, bool) {
	in, ok := incoming.(StringSet)
	if !ok {
		return s, false
	}
	out := make(StringSet, len(s)+len(in))
	for item := range s {
		out[item] = struct{}{}
	}
	for item := range in {
		out[item] = struct{}{}
	}
	return out, true
}

func (s StringSet) empty() bool { return len(s) == 0 }

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// Highlights only ever gains keys; an existing key keeps its first value.
type Highlights map[string]string

func (h Highlights) merge(incoming any) (any, bool) {
	in, ok := incoming.(Highlights)
	if !ok {
		return h, false
	}
	out := make(Highlights, len(h)+len(in))
	for k, v := range h {
		out[k] = v
	}
	for k, v := range in {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out, true
}

func (h Highlights) empty() bool { return len(h) == 0 }

// TabContent is the value stored under a "<name>Tab" field. Every page of a
// paginated tab folds into the same value in fetch order.
type TabContent struct {
	Tab        string   `json:"tab"`
	Content    Sections `json:"content"`
	Facilities Strings  `json:"facilities,omitempty"`
}

func NewTabContent(title string) TabContent {
	return TabContent{Tab: title, Content: Sections{}}
}

func (t TabContent) merge(incoming any) (any, bool) {
	in, ok := incoming.(TabContent)
	if !ok || (in.Tab != "" && t.Tab != "" && in.Tab != t.Tab) {
		return t, false
	}
	out := TabContent{
		Tab:     t.Tab,
		Content: t.Content.AppendUnique(in.Content...),
	}
	if out.Tab == "" {
		out.Tab = in.Tab
	}
	if len(t.Facilities) > 0 || len(in.Facilities) > 0 {
		out.Facilities = t.Facilities.AppendUnique(in.Facilities...)
	}
	return out, true
}

// A tab that has been fetched is never empty even without content: its
// presence records that the tab was visited.
func (t TabContent) empty() bool { return t.Tab == "" && len(t.Content) == 0 }

// ExamSection is one HTML block of an exam detail page.
type ExamSection struct {
	ID      string  `json:"id"`
	Heading *string `json:"heading,omitempty"`
	HTML    *string `json:"html_content"`
}

type SyllabusUnit struct {
	Unit       *string `json:"syllabus_unit"`
	Heading    *string `json:"syllabus_heading"`
	TopicsHTML *string `json:"topics_html"`
}

type SyllabusSubject struct {
	Name  *string        `json:"subject_name"`
	Units []SyllabusUnit `json:"units"`
}

type SyllabusExam struct {
	MainExamTitle string            `json:"main_exam_title"`
	Subjects      []SyllabusSubject `json:"subjects"`
}

type Syllabus []SyllabusExam

func (s Syllabus) merge(incoming any) (any, bool) {
	in, ok := incoming.(Syllabus)
	if !ok {
		return s, false
	}
	out := make(Syllabus, len(s), len(s)+len(in))
	copy(out, s)
	for _, item := range in {
		seen := false
		for _, existing := range out {
			if existing.MainExamTitle == item.MainExamTitle {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, item)
		}
	}
	return out, true
}

func (s Syllabus) empty() bool { return len(s) == 0 }

type Documents struct {
	Heading   *string `json:"heading"`
	Documents Strings `json:"documents"`
}
