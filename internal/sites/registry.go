// Package sites maps a site name to its spider and crawl defaults.
package sites

import (
	"fmt"

	"edu-crawler/internal/crawler/engine"
	"edu-crawler/internal/sites/colleges"
	"edu-crawler/internal/sites/courses"
	"edu-crawler/internal/sites/exams"
	"edu-crawler/pkg/models"
)

// Definition is everything needed to start crawling a site.
type Definition struct {
	Site           models.Site
	Spider         engine.Spider
	StartURLs      []string
	AllowedDomains []string
}

var registry = struct {
	r map[models.Site]Definition
}{
	r: make(map[models.Site]Definition),
}

func register(def Definition) {
	registry.r[def.Site] = def
}

func init() {
	register(Definition{
		Site:           models.SiteColleges,
		Spider:         colleges.New(),
		StartURLs:      colleges.StartURLs,
		AllowedDomains: colleges.AllowedDomains,
	})
	register(Definition{
		Site:           models.SiteCourses,
		Spider:         courses.New(),
		StartURLs:      courses.StartURLs,
		AllowedDomains: courses.AllowedDomains,
	})
	register(Definition{
		Site:           models.SiteExams,
		Spider:         exams.New(),
		StartURLs:      exams.StartURLs,
		AllowedDomains: exams.AllowedDomains,
	})
}

func New(name string) (Definition, error) {
	site, err := models.ParseSite(name)
	if err != nil {
		return Definition{}, err
	}
	def, ok := registry.r[site]
	if !ok {
		return Definition{}, fmt.Errorf("no spider registered for %s", site)
	}
	return def, nil
}
