package sitetree

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const keySep = "\x1f"

// pathKey is the ordered segment list of a URL: scheme, host segments, path
// segments, query, fragment. A parent's segments are always a strict prefix
// of its child's.
type pathKey struct {
	segs []string
	// floor is the length of the domain root's key; walks never go shorter.
	floor int
	// hostEnd is the index of the first segment after the host segments.
	hostEnd int
}

func newPathKey(u *url.URL, mode SubdomainMode) pathKey {
	k := pathKey{segs: []string{u.Scheme}}

	hostname := strings.ToLower(u.Hostname())
	if mode == SubdomainsChildren && net.ParseIP(hostname) == nil {
		domain := registrableDomain(hostname)
		k.segs = append(k.segs, withPort(domain, u.Port()))
		if sub := strings.TrimSuffix(hostname, "."+domain); sub != hostname && sub != "" {
			k.segs = append(k.segs, sub)
		}
	} else {
		k.segs = append(k.segs, strings.ToLower(u.Host))
	}
	k.floor = 2
	k.hostEnd = len(k.segs)

	for _, seg := range strings.Split(u.EscapedPath(), "/") {
		if seg != "" {
			k.segs = append(k.segs, seg)
		}
	}
	if u.RawQuery != "" {
		k.segs = append(k.segs, "?"+u.RawQuery)
	}
	if u.Fragment != "" {
		k.segs = append(k.segs, "#"+u.EscapedFragment())
	}
	return k
}

func registrableDomain(hostname string) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return hostname
	}
	return domain
}

func withPort(host, port string) string {
	if port == "" {
		return host
	}
	return host + ":" + port
}

func (k pathKey) String() string {
	return strings.Join(k.segs, keySep)
}

func (k pathKey) len() int { return len(k.segs) }

// prefix is the joined key of the ancestor n segments long.
func (k pathKey) prefix(n int) string {
	return strings.Join(k.segs[:n], keySep)
}

// urlAt rebuilds the URL of the ancestor n segments long.
func (k pathKey) urlAt(n int) string {
	host := k.segs[1]
	if n > 2 && k.hostEnd == 3 {
		host = k.segs[2] + "." + k.segs[1]
	}

	var b strings.Builder
	b.WriteString(k.segs[0])
	b.WriteString("://")
	b.WriteString(host)
	start := min(k.hostEnd, n)
	for _, seg := range k.segs[start:n] {
		switch seg[0] {
		case '?', '#':
			b.WriteString(seg)
		default:
			b.WriteByte('/')
			b.WriteString(seg)
		}
	}
	return b.String()
}
