package metadata

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
)

// Site identifies the website a URL belongs to.
type Site struct {
	// Domain is the lower-cased host without a leading "www.".
	Domain string
	// Name is the registrable label, e.g. "wikipedia" for en.wikipedia.org.
	Name string
}

// SiteIdentity derives the Site of rawURL. Scheme, port, path and a
// leading "www." do not affect the result.
func SiteIdentity(rawURL string) (Site, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return Site{}, apperror.ValidationFailed("url", fmt.Sprintf("cannot derive a site from %q", rawURL))
	}

	domain := normalizeHost(u.Hostname())
	name := domain

	if net.ParseIP(domain) != nil {
		return Site{Domain: domain, Name: name}, nil
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		suffix, _ := publicsuffix.PublicSuffix(domain)
		name = strings.TrimSuffix(etld1, "."+suffix)
	}

	return Site{Domain: domain, Name: name}, nil
}

// ChooseURL returns canonical when it is an absolute http(s) URL on the
// same host as submitted, and submitted otherwise.
func ChooseURL(submitted string, canonical *string) string {
	if canonical == nil || *canonical == "" {
		return submitted
	}
	c, err := url.Parse(*canonical)
	if err != nil || (c.Scheme != "http" && c.Scheme != "https") {
		return submitted
	}
	s, err := url.Parse(submitted)
	if err != nil {
		return submitted
	}
	if normalizeHost(c.Hostname()) != normalizeHost(s.Hostname()) {
		return submitted
	}
	return *canonical
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return strings.TrimPrefix(host, "www.")
}
