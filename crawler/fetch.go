package crawler

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/autogram-is/spidergram-sub001/models"
)

const maxPageBytes = 10 << 20 // 10 MB

// DiscoveredLink is an href exactly as it appeared on the page, before
// resolution or normalization.
type DiscoveredLink struct {
	Href     string
	Anchor   string
	Rel      string
	Priority int
}

type FetchResult struct {
	Page    *models.Page
	Links   []DiscoveredLink
	Skipped bool
	Reason  string
}

// Fetcher retrieves one page and the links on it.
type Fetcher interface {
	Fetch(ctx context.Context, target models.URLPriority) (*FetchResult, error)
}

type HTTPFetcher struct {
	client            *http.Client
	limiter           *rate.Limiter
	userAgent         string
	contentAnalyzer   *ContentAnalyzer
	duplicateDetector *DuplicateDetector
}

type HTTPFetcherOptions struct {
	UserAgent string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

func NewHTTPFetcher(opts HTTPFetcherOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:           rate.NewLimiter(limit, opts.RateBurst),
		userAgent:         opts.UserAgent,
		contentAnalyzer:   NewContentAnalyzer(),
		duplicateDetector: NewDuplicateDetector(),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target models.URLPriority) (*FetchResult, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !isRelevantContent(contentType) {
		return &FetchResult{Skipped: true, Reason: "irrelevant_content_type"}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target.URL, err)
	}

	hash := fmt.Sprintf("%x", md5.Sum(body))
	if f.duplicateDetector.IsDuplicate(hash) {
		return &FetchResult{Skipped: true, Reason: "duplicate_content"}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target.URL, err)
	}

	pageContext := f.contentAnalyzer.AnalyzeContent(doc)
	page := &models.Page{
		URLKey:         target.Key,
		URL:            target.URL,
		Title:          strings.TrimSpace(doc.Find("title").First().Text()),
		Content:        string(body),
		StatusCode:     resp.StatusCode,
		ContentType:    contentType,
		Size:           int64(len(body)),
		LoadTime:       time.Since(start).Milliseconds(),
		Depth:          target.Depth,
		ParentURL:      target.Parent,
		Hash:           hash,
		Importance:     pageContext.Importance,
		ContentQuality: pageContext.ContentQuality,
		LinkDensity:    pageContext.LinkDensity,
	}

	return &FetchResult{Page: page, Links: extractLinks(doc, pageContext)}, nil
}

func extractLinks(doc *goquery.Document, pageContext models.URLContext) []DiscoveredLink {
	var links []DiscoveredLink
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href = strings.TrimSpace(href); href == "" || strings.HasPrefix(href, "#") {
			return
		}
		rel, _ := sel.Attr("rel")
		links = append(links, DiscoveredLink{
			Href:     href,
			Anchor:   strings.TrimSpace(sel.Text()),
			Rel:      rel,
			Priority: linkPriority(sel, pageContext),
		})
	})
	return links
}

func isRelevantContent(contentType string) bool {
	relevantTypes := []string{
		"text/html",
		"application/xhtml+xml",
		"text/plain",
	}

	for _, relevantType := range relevantTypes {
		if strings.Contains(contentType, relevantType) {
			return true
		}
	}
	return false
}
