package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

type URLFilter interface {
	Filter(link string) bool
}

type AlwaysFilter struct{}

func (filter AlwaysFilter) Filter(link string) bool {
	return true
}

// AllowList accepts http(s) links whose host is one of the listed domains
// or a subdomain of one.
type AllowList struct {
	Domains []string
}

func NewAllowList(domains ...string) (*AllowList, error) {
	filter := &AllowList{}
	for _, d := range domains {
		domain := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if domain == "" {
			continue
		}
		filter.Domains = append(filter.Domains, domain)
	}
	if len(filter.Domains) == 0 {
		return nil, fmt.Errorf("allow-list is empty")
	}
	return filter, nil
}

// DomainOf extracts the host of startURL without its "www." prefix.
func DomainOf(startURL string) (string, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return "", fmt.Errorf("invalid start URL: %w", err)
	}

	domain := strings.TrimPrefix(u.Hostname(), "www.")
	if domain == "" {
		return "", fmt.Errorf("could not extract domain from %s", startURL)
	}
	return strings.ToLower(domain), nil
}

func (filter AllowList) Filter(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range filter.Domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
