package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogram-is/spidergram-sub001/config"
	"github.com/autogram-is/spidergram-sub001/sitetree"
	"github.com/autogram-is/spidergram-sub001/urls"
)

func TestHierarchyOptionsQueryRules(t *testing.T) {
	raw := "https://x.com/p?utm_source=news&sessionid=9&id=7"

	opts, err := hierarchyOptions(&config.Config{GapStrategy: "bridge", Subdomains: "children"})
	require.NoError(t, err)
	assert.Equal(t, sitetree.Bridge, opts.Gaps)
	assert.Equal(t, sitetree.SubdomainsChildren, opts.Subdomains)
	assert.Equal(t, "https://x.com/p?id=7&sessionid=9&utm_source=news", urls.Make(raw, urls.WithNormalizer(opts.Normalizer)).Href())

	opts, err = hierarchyOptions(&config.Config{DropTrackingParams: true, DropQueryKeys: []string{"sessionid"}})
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/p?id=7", urls.Make(raw, urls.WithNormalizer(opts.Normalizer)).Href())
}

func TestHierarchyOptionsRejectsUnknownStrategy(t *testing.T) {
	_, err := hierarchyOptions(&config.Config{GapStrategy: "guess"})
	assert.Error(t, err)
}

func TestSplitSeeds(t *testing.T) {
	assert.Equal(t, []string{"https://x.com", "https://y.org"}, splitSeeds(" https://x.com, ,https://y.org,"))
	assert.Empty(t, splitSeeds(""))
}
