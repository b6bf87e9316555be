// models/models.go
package models

import (
	"time"
)

type Page struct {
	URLKey         string  `json:"url_key"`
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	StatusCode     int     `json:"status_code"`
	ContentType    string  `json:"content_type"`
	Size           int64   `json:"size"`
	LoadTime       int64   `json:"load_time"`
	Depth          int     `json:"depth"`
	ParentURL      string  `json:"parent_url"`
	Hash           string  `json:"hash"`
	Importance     float64 `json:"importance"`
	ContentQuality float64 `json:"content_quality"`
	LinkDensity    float64 `json:"link_density"`
}

// Link is an <a href> found on a page, keyed by the identities at both ends.
type Link struct {
	SourceKey string `json:"source_key"`
	TargetKey string `json:"target_key"`
	URL       string `json:"url"`
	Anchor    string `json:"anchor"`
	Rel       string `json:"rel"`
}

// Edge is a derived parent/child relationship between two identities. Key is
// computed from Parent, Child and Context so rebuilds upsert in place.
type Edge struct {
	Key      string `json:"key"`
	Parent   string `json:"parent"`
	Child    string `json:"child"`
	Context  string `json:"context"`
	Inferred bool   `json:"inferred"`
}

type CrawlStats struct {
	PagesProcessed int           `json:"pages_processed"`
	PagesSkipped   int           `json:"pages_skipped"`
	Errors         int           `json:"errors"`
	URLsDiscovered int           `json:"urls_discovered"`
	Unparsable     int           `json:"unparsable"`
	Duration       time.Duration `json:"duration"`
	AvgLoadTime    time.Duration `json:"avg_load_time"`
	TotalSize      int64         `json:"total_size"`
}

type URLPriority struct {
	Key      string
	URL      string
	Priority int
	Depth    int
	Parent   string
	Context  URLContext
}

type URLContext struct {
	Importance     float64
	LinkDensity    float64
	ContentQuality float64
}
