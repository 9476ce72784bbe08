package models

import (
	"fmt"
	"strings"
)

// Site identifies which crawl pipeline a record belongs to.
type Site int

const (
	SiteNone Site = iota
	SiteColleges
	SiteCourses
	SiteExams
)

func (s Site) String() string {
	switch s {
	case SiteColleges:
		return "colleges"
	case SiteCourses:
		return "courses"
	case SiteExams:
		return "exams"
	default:
		return "none"
	}
}

func ParseSite(name string) (Site, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "colleges", "college":
		return SiteColleges, nil
	case "courses", "course":
		return SiteCourses, nil
	case "exams", "exam":
		return SiteExams, nil
	default:
		return SiteNone, fmt.Errorf("unknown site %q", name)
	}
}
