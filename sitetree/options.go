package sitetree

import (
	"fmt"
	"strings"

	"github.com/autogram-is/spidergram-sub001/urls"
)

// GapStrategy decides what happens to a URL whose direct parent was never
// crawled.
type GapStrategy int

const (
	// Adopt links the URL to its nearest existing ancestor.
	Adopt GapStrategy = iota
	// Bridge synthesizes an inferred node for every missing level.
	Bridge
	// Prune drops the URL and everything below it.
	Prune
	// Separate leaves the URL without a parent.
	Separate
)

func (g GapStrategy) String() string {
	switch g {
	case Adopt:
		return "adopt"
	case Bridge:
		return "bridge"
	case Prune:
		return "prune"
	case Separate:
		return "separate"
	}
	return fmt.Sprintf("GapStrategy(%d)", int(g))
}

func ParseGapStrategy(s string) (GapStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "adopt":
		return Adopt, nil
	case "bridge":
		return Bridge, nil
	case "prune":
		return Prune, nil
	case "separate":
		return Separate, nil
	}
	return Adopt, fmt.Errorf("unknown gap strategy %q", s)
}

// AllGapStrategies lists every strategy in declaration order.
var AllGapStrategies = []GapStrategy{Adopt, Bridge, Prune, Separate}

// SubdomainMode controls whether sub.example.com hangs under example.com.
type SubdomainMode int

const (
	SubdomainsSeparate SubdomainMode = iota
	SubdomainsChildren
)

func (m SubdomainMode) String() string {
	if m == SubdomainsChildren {
		return "children"
	}
	return "separate"
}

func ParseSubdomainMode(s string) (SubdomainMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "separate":
		return SubdomainsSeparate, nil
	case "children":
		return SubdomainsChildren, nil
	}
	return SubdomainsSeparate, fmt.Errorf("unknown subdomain mode %q", s)
}

type Options struct {
	Gaps            GapStrategy
	Subdomains      SubdomainMode
	ForceSingleRoot bool
	// Normalizer keys synthesized nodes. Nil uses the pool's own normalizer,
	// so an inferred node and a later real crawl of the same URL share a key.
	Normalizer urls.Normalizer
}
