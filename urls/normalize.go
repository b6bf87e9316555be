package urls

import (
	"net/url"
	"path"
	"slices"
	"strings"
)

// Normalizer rewrites a parsed URL into its canonical form. A Normalizer that
// returns nil marks the URL as unparsable.
type Normalizer func(u *url.URL) *url.URL

// DefaultIndexPatterns are the filename globs StripIndex removes when called
// without arguments.
var DefaultIndexPatterns = []string{"index.*", "default.*"}

// TrackingParams are analytics query keys (globs) dropped by DropTrackingParams.
var TrackingParams = []string{"utm_*", "fbclid", "gclid", "gclsrc", "dclid", "msclkid"}

// DefaultNormalizer is used whenever no normalizer is configured.
var DefaultNormalizer = Chain(
	ForceScheme("https"),
	LowercaseHost(),
	StripDefaultPort(),
	StripAuth(),
	StripIndex(),
	StripFragment(),
	SortQuery(),
	StripTrailingSlash(),
)

// Chain composes rules left to right. The input URL is never mutated.
func Chain(rules ...Normalizer) Normalizer {
	return func(u *url.URL) *url.URL {
		if u == nil {
			return nil
		}
		out := clone(u)
		for _, rule := range rules {
			if out = rule(out); out == nil {
				return nil
			}
		}
		return out
	}
}

func clone(u *url.URL) *url.URL {
	c := *u
	return &c
}

// ForceScheme rewrites http and https URLs to the given scheme.
func ForceScheme(scheme string) Normalizer {
	return func(u *url.URL) *url.URL {
		if u.Scheme == "http" || u.Scheme == "https" {
			u.Scheme = scheme
		}
		return u
	}
}

func LowercaseHost() Normalizer {
	return func(u *url.URL) *url.URL {
		u.Host = strings.ToLower(u.Host)
		return u
	}
}

// StripDefaultPort removes :80 and :443 from web URLs.
func StripDefaultPort() Normalizer {
	return func(u *url.URL) *url.URL {
		port := u.Port()
		if port == "80" || port == "443" {
			u.Host = strings.TrimSuffix(u.Host, ":"+port)
		}
		return u
	}
}

func StripAuth() Normalizer {
	return func(u *url.URL) *url.URL {
		u.User = nil
		return u
	}
}

// StripIndex drops the last path segment when it matches one of the globs,
// so /docs/index.html and /docs/ collapse together.
func StripIndex(patterns ...string) Normalizer {
	if len(patterns) == 0 {
		patterns = DefaultIndexPatterns
	}
	return func(u *url.URL) *url.URL {
		dir, file := path.Split(u.Path)
		if file == "" {
			return u
		}
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, strings.ToLower(file)); ok {
				u.Path = dir
				u.RawPath = ""
				break
			}
		}
		return u
	}
}

func StripFragment() Normalizer {
	return func(u *url.URL) *url.URL {
		u.Fragment = ""
		u.RawFragment = ""
		return u
	}
}

// SortQuery orders query pairs by key, keeping the original encoding and the
// relative order of repeated keys. Pairs are split on '&' only, so values
// containing ';' or malformed escapes survive untouched.
func SortQuery() Normalizer {
	return func(u *url.URL) *url.URL {
		pairs := queryPairs(u.RawQuery)
		slices.SortStableFunc(pairs, func(a, b string) int {
			return strings.Compare(pairKey(a), pairKey(b))
		})
		setQuery(u, pairs)
		return u
	}
}

// DropQueryKeys removes query parameters whose key matches any glob.
func DropQueryKeys(patterns ...string) Normalizer {
	return func(u *url.URL) *url.URL {
		if len(patterns) == 0 {
			return u
		}
		pairs := slices.DeleteFunc(queryPairs(u.RawQuery), func(pair string) bool {
			key := pairKey(pair)
			if decoded, err := url.QueryUnescape(key); err == nil {
				key = decoded
			}
			for _, pattern := range patterns {
				if ok, _ := path.Match(pattern, key); ok {
					return true
				}
			}
			return false
		})
		setQuery(u, pairs)
		return u
	}
}

func queryPairs(rawQuery string) []string {
	var pairs []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

func pairKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	return key
}

// setQuery writes pairs back; an empty result also drops a bare trailing '?'.
func setQuery(u *url.URL, pairs []string) {
	u.RawQuery = strings.Join(pairs, "&")
	if u.RawQuery == "" {
		u.ForceQuery = false
	}
}

func DropTrackingParams() Normalizer {
	return DropQueryKeys(TrackingParams...)
}

// StripTrailingSlash removes trailing slashes, including the lone root slash,
// so https://example.com and https://example.com/ are the same URL.
func StripTrailingSlash() Normalizer {
	return func(u *url.URL) *url.URL {
		if strings.HasSuffix(u.Path, "/") {
			u.Path = strings.TrimRight(u.Path, "/")
			u.RawPath = ""
		}
		return u
	}
}
