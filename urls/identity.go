// Package urls turns raw URL strings into stable crawl identities and keeps
// deduplicated pools of them.
package urls

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
	whatwg "github.com/nlnwa/whatwg-url/url"
)

// KeyVersion is embedded in every key. Changing the hashing scheme requires a
// new version, otherwise keys stored by earlier crawls stop matching.
const KeyVersion = "1"

const (
	parsablePrefix   = "u" + KeyVersion + ":"
	unparsablePrefix = "x" + KeyVersion + ":"
	syntheticPrefix  = "r" + KeyVersion + ":"
	edgePrefix       = "e" + KeyVersion + ":"
)

// keyNamespace seeds the UUIDv5 hashes used for keys.
var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://spidergram.dev/unique_url"))

// Identity is a crawled or discovered URL with its canonical form and key.
type Identity struct {
	Raw        string
	Normalized *url.URL
	Key        string
	Parsable   bool
	Depth      int
	Referer    string
}

// Href returns the normalized URL string, or "" when the identity is unparsable.
func (i Identity) Href() string {
	if i.Normalized == nil {
		return ""
	}
	return i.Normalized.String()
}

func (i Identity) String() string {
	if i.Parsable {
		return i.Href()
	}
	return i.Raw
}

type makeOptions struct {
	base       *url.URL
	normalizer Normalizer
	depth      int
	referer    string
}

type Option func(*makeOptions)

// WithBase resolves relative input against base.
func WithBase(base *url.URL) Option {
	return func(o *makeOptions) { o.base = base }
}

func WithNormalizer(n Normalizer) Option {
	return func(o *makeOptions) {
		if n != nil {
			o.normalizer = n
		}
	}
}

func WithDepth(depth int) Option {
	return func(o *makeOptions) {
		if depth > 0 {
			o.depth = depth
		}
	}
}

func WithReferer(referer string) Option {
	return func(o *makeOptions) { o.referer = referer }
}

// Make builds an Identity from raw. It never fails: input that is not an
// absolute http(s) URL yields an unparsable identity keyed on the raw string.
func Make(raw string, opts ...Option) Identity {
	o := makeOptions{normalizer: DefaultNormalizer}
	for _, opt := range opts {
		opt(&o)
	}

	id := Identity{Raw: raw, Depth: o.depth, Referer: o.referer}
	if normalized := parse(raw, o.base, o.normalizer); normalized != nil {
		id.Normalized = normalized
		id.Parsable = true
		id.Key = parsablePrefix + hash(normalized.String())
		return id
	}
	id.Key = unparsablePrefix + hash(raw)
	return id
}

// parser applies WHATWG parsing before any normalizer runs: lowercased
// scheme and host, IDNA hosts, default ports for the scheme, resolved dot
// segments and percent-encoding. Rules then work on the result.
var parser = whatwg.NewParser(whatwg.WithPercentEncodeSinglePercentSign())

func parse(raw string, base *url.URL, normalizer Normalizer) *url.URL {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	var (
		w   *whatwg.Url
		err error
	)
	if base != nil {
		w, err = parser.ParseRef(base.String(), trimmed)
	} else {
		w, err = parser.Parse(trimmed)
	}
	if err != nil {
		return nil
	}
	if (w.Scheme() != "http" && w.Scheme() != "https") || w.Hostname() == "" {
		return nil
	}
	u, err := url.Parse(w.Href(false))
	if err != nil {
		return nil
	}
	normalized := normalizer(u)
	if normalized == nil || normalized.Hostname() == "" {
		return nil
	}
	return normalized
}

// Synthetic returns a non-URL identity for nodes that stand in for a group of
// URLs, such as a consolidated root. Its key depends only on label.
func Synthetic(label string) Identity {
	return Identity{Raw: label, Key: syntheticPrefix + hash(label)}
}

// EdgeKey derives the key of a relationship record so rebuilding the same
// edge twice upserts instead of duplicating.
func EdgeKey(parentKey, childKey, context string) string {
	return edgePrefix + hash(parentKey+"\x00"+childKey+"\x00"+context)
}

func hash(s string) string {
	return uuid.NewSHA1(keyNamespace, []byte(s)).String()
}
