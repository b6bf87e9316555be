package crawler

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/autogram-is/spidergram-sub001/models"
)

// Content Analyzer
type ContentAnalyzer struct{}

func NewContentAnalyzer() *ContentAnalyzer {
	return &ContentAnalyzer{}
}

func (ca *ContentAnalyzer) AnalyzeContent(doc *goquery.Document) models.URLContext {
	return models.URLContext{
		ContentQuality: ca.calculateContentQuality(doc),
		LinkDensity:    ca.calculateLinkDensity(doc),
		Importance:     ca.calculateImportance(doc),
	}
}

func (ca *ContentAnalyzer) calculateContentQuality(doc *goquery.Document) float64 {
	score := 0.0

	textLength := len(strings.TrimSpace(doc.Find("body").Text()))
	if textLength > 500 {
		score += 0.3
	}
	if textLength > 2000 {
		score += 0.2
	}

	if doc.Find("h1, h2, h3").Length() > 0 {
		score += 0.2
	}
	if doc.Find("p").Length() > 3 {
		score += 0.2
	}
	if doc.Find("meta[name='description']").Length() > 0 {
		score += 0.1
	}

	return clamp(score, 0, 1)
}

func (ca *ContentAnalyzer) calculateLinkDensity(doc *goquery.Document) float64 {
	textLength := len(doc.Find("body").Text())
	linkTextLength := len(doc.Find("a").Text())

	if textLength == 0 {
		return 0.0
	}

	return clamp(float64(linkTextLength)/float64(textLength), 0, 1)
}

func (ca *ContentAnalyzer) calculateImportance(doc *goquery.Document) float64 {
	importance := 0.5

	title := doc.Find("title").Text()
	if len(title) > 10 && len(title) < 70 {
		importance += 0.1
	}
	if doc.Find("article").Length() > 0 {
		importance += 0.2
	}
	// Breadcrumbs usually mean the page sits deep in a real hierarchy.
	if doc.Find("nav, .breadcrumb").Length() > 0 {
		importance += 0.1
	}
	if doc.Find("[class*='share'], [class*='social']").Length() > 0 {
		importance += 0.1
	}

	return clamp(importance, 0, 1)
}

var (
	highPriorityKeywords = []string{"article", "news", "blog", "content", "post", "story", "research", "documentation"}
	lowPriorityKeywords  = []string{"login", "register", "contact", "about", "terms", "privacy", "sitemap"}
)

// linkPriority scores an anchor between 1 and 100 from its text, rel and
// class attributes and the importance of the page it sits on.
func linkPriority(sel *goquery.Selection, page models.URLContext) int {
	priority := 50

	anchorText := strings.ToLower(strings.TrimSpace(sel.Text()))
	for _, keyword := range highPriorityKeywords {
		if strings.Contains(anchorText, keyword) {
			priority += 20
			break
		}
	}
	for _, keyword := range lowPriorityKeywords {
		if strings.Contains(anchorText, keyword) {
			priority -= 15
			break
		}
	}

	if rel, exists := sel.Attr("rel"); exists && strings.Contains(rel, "nofollow") {
		priority -= 30
	}
	if class, exists := sel.Attr("class"); exists {
		if strings.Contains(class, "nav") || strings.Contains(class, "menu") {
			priority -= 10
		}
		if strings.Contains(class, "content") || strings.Contains(class, "article") {
			priority += 15
		}
	}

	priority += int(page.Importance * 20)
	return int(clamp(float64(priority), 1, 100))
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// Duplicate Detector
type DuplicateDetector struct {
	seenHashes map[string]bool
	mutex      sync.Mutex
}

func NewDuplicateDetector() *DuplicateDetector {
	return &DuplicateDetector{
		seenHashes: make(map[string]bool),
	}
}

// IsDuplicate records hash and reports whether it had been seen before.
func (dd *DuplicateDetector) IsDuplicate(hash string) bool {
	dd.mutex.Lock()
	defer dd.mutex.Unlock()

	if dd.seenHashes[hash] {
		return true
	}
	dd.seenHashes[hash] = true
	return false
}
