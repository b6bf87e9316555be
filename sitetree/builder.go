// Package sitetree reconstructs a parent/child page tree from a flat pool of
// URL identities using path-segment ancestry.
package sitetree

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/autogram-is/spidergram-sub001/hierarchy"
	"github.com/autogram-is/spidergram-sub001/models"
	"github.com/autogram-is/spidergram-sub001/urls"
)

// Context labels edges produced by the builder.
const Context = "url"

type Node = hierarchy.Node[urls.Identity]

type Result struct {
	Tree *hierarchy.Tree[urls.Identity]
	// Orphans are nodes left in the tree with neither parent nor children.
	Orphans []*Node
	// Discarded nodes were removed by the prune strategy.
	Discarded []*Node
	// Collapsed identities share a path key with an earlier pool entry and
	// were folded into its node.
	Collapsed []urls.Identity
	// Unparsable identities never take part in construction.
	Unparsable []urls.Identity
	Inferred   int
}

// Edges converts the tree's links into persistable edge records.
func (r Result) Edges() []models.Edge {
	treeEdges := r.Tree.Edges()
	out := make([]models.Edge, 0, len(treeEdges))
	for _, e := range treeEdges {
		out = append(out, models.Edge{
			Key:      urls.EdgeKey(e.Parent, e.Child, Context),
			Parent:   e.Parent,
			Child:    e.Child,
			Context:  Context,
			Inferred: e.Inferred,
		})
	}
	return out
}

func (r Result) Roots() []*Node {
	return r.Tree.FindRoots()
}

// Label renders a node for TreeString output.
func Label(n *Node) string {
	return n.Data.String()
}

type item struct {
	node *Node
	key  pathKey
	path string
}

type builder struct {
	opts   Options
	tree   *hierarchy.Tree[urls.Identity]
	byPath map[string]string
	pathOf map[string]string
	result *Result
}

func makeNode(id urls.Identity) *Node {
	return hierarchy.NewNode(id.Key, id)
}

// Build links every parsable identity in pool to its closest path ancestor.
// It never fails on gaps or odd input: every outcome is reflected in Result.
func Build(pool *urls.Pool, opts Options) Result {
	if opts.Normalizer == nil {
		opts.Normalizer = pool.Normalizer()
	}
	b := &builder{
		opts:   opts,
		tree:   hierarchy.New(makeNode),
		byPath: make(map[string]string),
		pathOf: make(map[string]string),
	}
	b.result = &Result{Tree: b.tree}

	items := b.collect(pool)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].path > items[j].path
	})
	for _, it := range items {
		b.place(it)
	}

	if opts.ForceSingleRoot {
		b.consolidate()
	}
	for _, n := range b.tree.Nodes() {
		if n.IsOrphan() {
			b.result.Orphans = append(b.result.Orphans, n)
		}
	}
	return *b.result
}

func (b *builder) collect(pool *urls.Pool) []item {
	var items []item
	for id := range pool.Values() {
		if !id.Parsable {
			b.result.Unparsable = append(b.result.Unparsable, id)
			continue
		}
		key := newPathKey(id.Normalized, b.opts.Subdomains)
		path := key.String()
		if _, taken := b.byPath[path]; taken {
			b.result.Collapsed = append(b.result.Collapsed, id)
			continue
		}
		node := b.tree.Add(id)[0]
		b.byPath[path] = node.ID
		b.pathOf[node.ID] = path
		items = append(items, item{node: node, key: key, path: path})
	}
	for _, raw := range pool.Unparsable() {
		b.result.Unparsable = append(b.result.Unparsable, urls.Make(raw, urls.WithNormalizer(b.opts.Normalizer)))
	}
	return items
}

func (b *builder) place(it item) {
	n := it.key.len()
	if n <= it.key.floor {
		return
	}
	if parent, ok := b.byPath[it.key.prefix(n-1)]; ok {
		b.link(it.node.ID, parent)
		return
	}

	switch b.opts.Gaps {
	case Adopt:
		if level, parent := b.nearest(it.key, n-2); level > 0 {
			b.link(it.node.ID, parent)
		}
	case Bridge:
		level, parent := b.nearest(it.key, n-2)
		if level == 0 {
			level = it.key.floor - 1
		}
		child := it.node.ID
		for l := n - 1; l > level; l-- {
			synthetic := b.synthesize(it.key, l)
			b.link(child, synthetic)
			child = synthetic
		}
		if parent != "" {
			b.link(child, parent)
		}
	case Prune:
		b.discard(it.node.ID)
	case Separate:
	}
}

// nearest searches ancestors from length `from` down to the domain root and
// returns the first existing one. A zero level means none was found.
func (b *builder) nearest(key pathKey, from int) (int, string) {
	for l := from; l >= key.floor; l-- {
		if id, ok := b.byPath[key.prefix(l)]; ok {
			return l, id
		}
	}
	return 0, ""
}

func (b *builder) synthesize(key pathKey, level int) string {
	path := key.prefix(level)
	id := urls.Make(key.urlAt(level), urls.WithNormalizer(b.opts.Normalizer))
	if _, taken := b.tree.Node(id.Key); taken {
		id = urls.Synthetic("path:" + path)
	}
	node := b.tree.AddNode(hierarchy.NewInferred(id.Key, id))
	b.byPath[path] = node.ID
	b.pathOf[node.ID] = path
	b.result.Inferred++
	return node.ID
}

func (b *builder) discard(id string) {
	doomed := append([]*Node{}, b.tree.Descendants(id)...)
	if n, ok := b.tree.Node(id); ok {
		doomed = append([]*Node{n}, doomed...)
	}
	for _, n := range doomed {
		b.tree.Remove(n.ID)
		delete(b.byPath, b.pathOf[n.ID])
		delete(b.pathOf, n.ID)
		b.result.Discarded = append(b.result.Discarded, n)
	}
}

// consolidate hangs every parentless node under one synthesized root when
// there is more than one.
func (b *builder) consolidate() {
	var tops []*Node
	var origins []string
	for _, n := range b.tree.Nodes() {
		if n.Parent() != "" {
			continue
		}
		tops = append(tops, n)
		origin := n.Data.Key
		if n.Data.Parsable {
			origin = n.Data.Normalized.Scheme + "://" + n.Data.Normalized.Host
		}
		if !slices.Contains(origins, origin) {
			origins = append(origins, origin)
		}
	}
	if len(tops) < 2 {
		return
	}
	sort.Strings(origins)
	root := urls.Synthetic("root:" + strings.Join(origins, ","))
	b.tree.AddNode(hierarchy.NewInferred(root.Key, root))
	b.result.Inferred++
	for _, n := range tops {
		b.link(n.ID, root.Key)
	}
}

// link panics on structural errors: path keys cannot form cycles, so an
// error here means the builder itself is broken.
func (b *builder) link(child, parent string) {
	if err := b.tree.SetParent(child, parent); err != nil {
		panic(fmt.Sprintf("sitetree: %v", err))
	}
}
