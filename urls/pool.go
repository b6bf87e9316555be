package urls

import (
	"iter"
	"slices"
)

type PoolOptions struct {
	// KeepUnparsable admits unparsable identities into the keyed collection
	// instead of only recording their raw strings.
	KeepUnparsable bool
	Normalizer     Normalizer
}

// Pool is an insertion-ordered set of identities keyed by Identity.Key. The
// first identity added for a key wins. A Pool is not safe for concurrent
// mutation; give it a single owner.
type Pool struct {
	opts  PoolOptions
	items map[string]Identity
	order []string

	unparsable []string
	rejected   map[string]struct{}
}

func NewPool(opts PoolOptions) *Pool {
	if opts.Normalizer == nil {
		opts.Normalizer = DefaultNormalizer
	}
	return &Pool{
		opts:     opts,
		items:    make(map[string]Identity),
		rejected: make(map[string]struct{}),
	}
}

// Normalizer is the rule chain every identity in the pool was built with.
func (p *Pool) Normalizer() Normalizer {
	return p.opts.Normalizer
}

// Make builds an identity with the pool's normalizer.
func (p *Pool) Make(raw string, opts ...Option) Identity {
	return Make(raw, append([]Option{WithNormalizer(p.opts.Normalizer)}, opts...)...)
}

// Add normalizes raw and inserts it. It reports whether the pool grew.
func (p *Pool) Add(raw string, opts ...Option) bool {
	return p.AddIdentity(p.Make(raw, opts...))
}

// AddAll adds every raw string and returns how many were new.
func (p *Pool) AddAll(raws ...string) int {
	added := 0
	for _, raw := range raws {
		if p.Add(raw) {
			added++
		}
	}
	return added
}

func (p *Pool) AddIdentity(id Identity) bool {
	if !id.Parsable && !p.opts.KeepUnparsable {
		if _, seen := p.rejected[id.Raw]; !seen {
			p.rejected[id.Raw] = struct{}{}
			p.unparsable = append(p.unparsable, id.Raw)
		}
		return false
	}
	if _, exists := p.items[id.Key]; exists {
		return false
	}
	p.items[id.Key] = id
	p.order = append(p.order, id.Key)
	return true
}

func (p *Pool) Has(raw string) bool {
	return p.HasKey(p.Make(raw).Key)
}

func (p *Pool) HasIdentity(id Identity) bool {
	return p.HasKey(id.Key)
}

func (p *Pool) HasKey(key string) bool {
	_, ok := p.items[key]
	return ok
}

func (p *Pool) Get(key string) (Identity, bool) {
	id, ok := p.items[key]
	return id, ok
}

// Delete removes the identity raw normalizes to and reports whether one was present.
func (p *Pool) Delete(raw string) bool {
	return p.DeleteKey(p.Make(raw).Key)
}

func (p *Pool) DeleteKey(key string) bool {
	if _, ok := p.items[key]; !ok {
		return false
	}
	delete(p.items, key)
	if i := slices.Index(p.order, key); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
	return true
}

func (p *Pool) Len() int {
	return len(p.items)
}

// Values yields identities in insertion order. Each call starts a new pass.
func (p *Pool) Values() iter.Seq[Identity] {
	return func(yield func(Identity) bool) {
		for _, key := range p.order {
			id, ok := p.items[key]
			if !ok {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

// Unparsable returns the raw strings rejected because they could not be parsed.
func (p *Pool) Unparsable() []string {
	return slices.Clone(p.unparsable)
}
