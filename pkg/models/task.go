package models

import (
	"strings"
)

type TaskKind int

const (
	Listing TaskKind = iota
	Detail
	Tab
)

func (k TaskKind) String() string {
	switch k {
	case Listing:
		return "listing"
	case Detail:
		return "detail"
	case Tab:
		return "tab"
	default:
		return "unknown"
	}
}

// EntityKey identifies one college, course or exam within a crawl run.
type EntityKey string

// NewEntityKey derives a key from a visible title. Inner whitespace is
// collapsed so that cards rendered with different line breaks still match.
func NewEntityKey(title string) EntityKey {
	return EntityKey(strings.Join(strings.Fields(title), " "))
}

// TabRef is one entry of a detail page's sub-navigation.
type TabRef struct {
	Title string
	URL   string
}

// Field is the record field a tab's content is folded into:
// "Cut Offs" becomes "cutoffsTab".
func (t TabRef) Field() string {
	return TabField(t.Title)
}

func TabField(title string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "")) + "Tab"
}

// CarriedContext travels with a task. It is never mutated after the task
// has been queued.
type CarriedContext struct {
	Key EntityKey
	// Seed holds the listing-page fields, only set on DETAIL tasks.
	Seed *Record
	// Tab and Page are only set on TAB tasks. Page starts at 1.
	Tab  TabRef
	Page int
}

type CrawlTask struct {
	URL     string
	Kind    TaskKind
	Carried CarriedContext
}
