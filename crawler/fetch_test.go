package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogram-is/spidergram-sub001/models"
)

const homePage = `<html><head><title>Home page title</title></head>
<body>
<nav><a href="/about" class="nav">About us</a></nav>
<article>
<a href="/blog/post-1" class="content">Blog post</a>
<a href="#top">Top</a>
<a href="  ">Blank</a>
<a href="https://other.example/" rel="nofollow">Elsewhere</a>
</article>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, homePage)
	})
	mux.HandleFunc("/copy", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, homePage)
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><head><title>%s</title></head></html>", r.UserAgent())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcherExtractsPageAndLinks(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(HTTPFetcherOptions{Timeout: 5 * time.Second})

	res, err := f.Fetch(context.Background(), models.URLPriority{Key: "u1:home", URL: srv.URL + "/", Depth: 1, Parent: "seed"})
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.NotNil(t, res.Page)

	assert.Equal(t, "u1:home", res.Page.URLKey)
	assert.Equal(t, "Home page title", res.Page.Title)
	assert.Equal(t, http.StatusOK, res.Page.StatusCode)
	assert.Equal(t, 1, res.Page.Depth)
	assert.Equal(t, "seed", res.Page.ParentURL)
	assert.NotEmpty(t, res.Page.Hash)

	var hrefs []string
	priority := map[string]int{}
	for _, l := range res.Links {
		hrefs = append(hrefs, l.Href)
		priority[l.Href] = l.Priority
	}
	assert.Equal(t, []string{"/about", "/blog/post-1", "https://other.example/"}, hrefs)
	assert.Greater(t, priority["/blog/post-1"], priority["/about"])
	assert.Less(t, priority["https://other.example/"], priority["/blog/post-1"])
	assert.Equal(t, "nofollow", res.Links[2].Rel)
	assert.Equal(t, "Blog post", res.Links[1].Anchor)
}

func TestHTTPFetcherSkipsDuplicateContent(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(HTTPFetcherOptions{})

	first, err := f.Fetch(context.Background(), models.URLPriority{URL: srv.URL + "/"})
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	second, err := f.Fetch(context.Background(), models.URLPriority{URL: srv.URL + "/copy"})
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, "duplicate_content", second.Reason)
}

func TestHTTPFetcherSkipsIrrelevantContentType(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(HTTPFetcherOptions{})

	res, err := f.Fetch(context.Background(), models.URLPriority{URL: srv.URL + "/logo.png"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "irrelevant_content_type", res.Reason)
	assert.Nil(t, res.Page)
}

func TestHTTPFetcherSendsUserAgent(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(HTTPFetcherOptions{UserAgent: "spidergram-test/1.0"})

	res, err := f.Fetch(context.Background(), models.URLPriority{URL: srv.URL + "/ua"})
	require.NoError(t, err)
	require.NotNil(t, res.Page)
	assert.Equal(t, "spidergram-test/1.0", res.Page.Title)
}

func TestHTTPFetcherHonorsCancelledContext(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(HTTPFetcherOptions{RateLimit: 1, RateBurst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, models.URLPriority{URL: srv.URL + "/"})
	assert.Error(t, err)
}

func TestIsRelevantContent(t *testing.T) {
	assert.True(t, isRelevantContent("text/html; charset=utf-8"))
	assert.True(t, isRelevantContent("application/xhtml+xml"))
	assert.False(t, isRelevantContent("application/pdf"))
	assert.False(t, isRelevantContent(""))
}
