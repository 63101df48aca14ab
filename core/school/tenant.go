package school

import (
	"net"
	"strings"
)

// SubdomainFromHost extracts the tenant subdomain of a request Host under baseDomain.
// Bare domains, IP addresses, invalid and reserved subdomains give "".
// Without a baseDomain, the first label of a host of 3 labels or more is used.
func SubdomainFromHost(host, baseDomain string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || net.ParseIP(strings.Trim(host, "[]")) != nil {
		return ""
	}

	var sub string
	baseDomain = strings.Trim(strings.ToLower(baseDomain), ".")
	if baseDomain != "" {
		if !strings.HasSuffix(host, "."+baseDomain) {
			return ""
		}
		sub = strings.TrimSuffix(host, "."+baseDomain)
	} else {
		labels := strings.Split(host, ".")
		if len(labels) < 3 {
			return ""
		}
		sub = labels[0]
	}
	if !ValidSubdomain(sub) {
		return ""
	}
	return sub
}
