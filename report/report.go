// Package report prints hierarchy build results for operators.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/autogram-is/spidergram-sub001/models"
	"github.com/autogram-is/spidergram-sub001/sitetree"
	"github.com/autogram-is/spidergram-sub001/urls"
)

// Summary is the shape of one built tree.
type Summary struct {
	Gaps       sitetree.GapStrategy
	Nodes      int
	Inferred   int
	Edges      int
	Roots      int
	Orphans    int
	Discarded  int
	Collapsed  int
	Unparsable int
	MaxDepth   int
}

func Summarize(result sitetree.Result) Summary {
	s := Summary{
		Nodes:      result.Tree.Len(),
		Inferred:   result.Inferred,
		Edges:      len(result.Tree.Edges()),
		Roots:      len(result.Roots()),
		Orphans:    len(result.Orphans),
		Discarded:  len(result.Discarded),
		Collapsed:  len(result.Collapsed),
		Unparsable: len(result.Unparsable),
	}
	for _, n := range result.Tree.Nodes() {
		s.MaxDepth = max(s.MaxDepth, len(result.Tree.Ancestors(n.ID))+1)
	}
	return s
}

// CompareStrategies builds pool once per gap strategy with the rest of base
// unchanged and prints a side-by-side table.
func CompareStrategies(w io.Writer, pool *urls.Pool, base sitetree.Options) []Summary {
	var summaries []Summary
	for _, gaps := range sitetree.AllGapStrategies {
		opts := base
		opts.Gaps = gaps
		s := Summarize(sitetree.Build(pool, opts))
		s.Gaps = gaps
		summaries = append(summaries, s)
	}
	displayComparison(w, summaries)
	return summaries
}

func displayComparison(w io.Writer, summaries []Summary) {
	fmt.Fprintln(w, "Hierarchy Strategy Comparison")
	fmt.Fprintln(w, "=============================")

	fmt.Fprintf(w, "%-12s", "Metric")
	for _, s := range summaries {
		fmt.Fprintf(w, " %-10s", s.Gaps)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 12+11*len(summaries)))

	rows := []struct {
		name  string
		value func(Summary) int
	}{
		{"Nodes", func(s Summary) int { return s.Nodes }},
		{"Inferred", func(s Summary) int { return s.Inferred }},
		{"Edges", func(s Summary) int { return s.Edges }},
		{"Roots", func(s Summary) int { return s.Roots }},
		{"Orphans", func(s Summary) int { return s.Orphans }},
		{"Discarded", func(s Summary) int { return s.Discarded }},
		{"Collapsed", func(s Summary) int { return s.Collapsed }},
		{"Unparsable", func(s Summary) int { return s.Unparsable }},
		{"Max Depth", func(s Summary) int { return s.MaxDepth }},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-12s", row.name)
		for _, s := range summaries {
			fmt.Fprintf(w, " %-10d", row.value(s))
		}
		fmt.Fprintln(w)
	}
}

// WriteTree renders every root and orphan of result. Inferred nodes are
// marked with an asterisk.
func WriteTree(w io.Writer, result sitetree.Result) error {
	for _, n := range result.Tree.Nodes() {
		if n.Parent() != "" {
			continue
		}
		if _, err := io.WriteString(w, result.Tree.TreeString(n.ID, sitetree.Label)); err != nil {
			return err
		}
	}
	if len(result.Unparsable) > 0 {
		if _, err := fmt.Fprintf(w, "\n%d unparsable:\n", len(result.Unparsable)); err != nil {
			return err
		}
		for _, id := range result.Unparsable {
			if _, err := fmt.Fprintf(w, "  %s\n", id.Raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteCrawlStats prints the totals of one crawl.
func WriteCrawlStats(w io.Writer, stats *models.CrawlStats) {
	fmt.Fprintln(w, "Crawl Results")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "%-20s %d\n", "Pages Processed", stats.PagesProcessed)
	fmt.Fprintf(w, "%-20s %d\n", "Pages Skipped", stats.PagesSkipped)
	fmt.Fprintf(w, "%-20s %d\n", "Errors", stats.Errors)
	fmt.Fprintf(w, "%-20s %d\n", "URLs Discovered", stats.URLsDiscovered)
	fmt.Fprintf(w, "%-20s %d\n", "Unparsable", stats.Unparsable)
	fmt.Fprintf(w, "%-20s %s\n", "Total Size", formatBytes(stats.TotalSize))
	fmt.Fprintf(w, "%-20s %s\n", "Duration", stats.Duration.Round(time.Millisecond))
	if stats.Duration > 0 {
		fmt.Fprintf(w, "%-20s %.2f pages/second\n", "Rate", float64(stats.PagesProcessed)/stats.Duration.Seconds())
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
