package services

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Matcher compares the service identity presented at validation time against
// the identity a ticket was issued for. Implementations are pluggable: exact,
// normalized-URL or registrable-domain comparison.
type Matcher interface {
	Matches(candidate, ticketService string) bool
}

// ExactMatcher compares normalized service URLs: scheme and host are
// lowercased, default ports and trailing slashes dropped, fragments and
// jsession-style path parameters ignored.
type ExactMatcher struct{}

func (ExactMatcher) Matches(candidate, ticketService string) bool {
	return normalizeServiceID(candidate) == normalizeServiceID(ticketService)
}

// HostMatcher accepts any candidate whose registrable domain (eTLD+1) equals
// the ticket service's registrable domain. Useful for service farms sharing
// one SSO registration.
type HostMatcher struct{}

func (HostMatcher) Matches(candidate, ticketService string) bool {
	a := registrableDomain(candidate)
	b := registrableDomain(ticketService)
	return a != "" && a == b
}

func normalizeServiceID(id string) string {
	id = strings.TrimSpace(id)
	u, err := url.Parse(id)
	if err != nil || u.Host == "" {
		// Not a URL; compare the raw identifier case-insensitively.
		return strings.ToLower(id)
	}
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	scheme := strings.ToLower(u.Scheme)
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	// Strip path parameters such as ;jsessionid=...
	if i := strings.IndexByte(path, ';'); i >= 0 {
		path = path[:i]
	}
	normalized := scheme + "://" + host + path
	if u.RawQuery != "" {
		normalized += "?" + u.RawQuery
	}
	return normalized
}

func registrableDomain(id string) string {
	host := id
	if u, err := url.Parse(id); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// matchPattern evaluates a registered-service pattern against a presented
// service id for the registration's match kind.
func matchPattern(serviceID, pattern string, kind MatchKind) bool {
	serviceID = strings.TrimSpace(serviceID)
	pattern = strings.TrimSpace(pattern)
	if serviceID == "" || pattern == "" {
		return false
	}

	switch kind {
	case MatchWildcard:
		return matchWildcard(serviceID, pattern)
	case MatchRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(serviceID)
	case MatchETLDPlusOne:
		return HostMatcher{}.Matches(serviceID, pattern)
	case MatchExact:
		return ExactMatcher{}.Matches(serviceID, pattern)
	default:
		// Unknown kinds fall back to exact comparison.
		return ExactMatcher{}.Matches(serviceID, pattern)
	}
}

// matchWildcard supports glob-style patterns ("https://*.example.org/*").
func matchWildcard(serviceID, pattern string) bool {
	if serviceID == pattern {
		return true
	}
	ok, err := filepath.Match(pattern, serviceID)
	if err != nil {
		return false
	}
	if ok {
		return true
	}
	// A trailing "*" should also cover the bare prefix without a suffix.
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(serviceID, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
