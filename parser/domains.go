package parser

import (
	"net/url"
	"strings"
)

// DefaultPlatformDomains are directories and social profiles that do not count
// as a business's own website.
var DefaultPlatformDomains = []string{
	"facebook.com", "yelp.com", "instagram.com", "linkedin.com",
	"yellowpages.com", "angieslist.com", "thumbtack.com", "nextdoor.com",
	"porch.com", "bbb.org", "mapquest.com", "tripadvisor.com", "twitter.com",
}

// DefaultSearchIgnoreDomains are skipped when scanning search results for an
// unaffiliated website.
var DefaultSearchIgnoreDomains = []string{
	"yelp.com", "yellowpages.com", "facebook.com", "instagram.com",
	"linkedin.com", "mapquest.com", "tripadvisor.com", "angieslist.com",
	"bbb.org", "thumbtack.com", "porch.com", "nextdoor.com",
}

// DomainSet matches URLs against a fixed list of registrable domains.
type DomainSet struct {
	domains []string
}

// NewDomainSet normalises the given domains into a matcher.
func NewDomainSet(domains []string) *DomainSet {
	set := &DomainSet{}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			set.domains = append(set.domains, d)
		}
	}
	return set
}

// Matches reports whether rawURL belongs to one of the domains or a subdomain of one.
// Unparseable input falls back to a substring check.
func (s *DomainSet) Matches(rawURL string) bool {
	if s == nil || strings.TrimSpace(rawURL) == "" {
		return false
	}
	host := Hostname(rawURL)
	if host == "" {
		lower := strings.ToLower(rawURL)
		for _, d := range s.domains {
			if strings.Contains(lower, d) {
				return true
			}
		}
		return false
	}
	for _, d := range s.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Hostname returns the lowercase host of rawURL without a leading "www.".
// Scheme-less input such as "acme.com/contact" is accepted.
func Hostname(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "http://" + strings.TrimLeft(raw, "/")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}
