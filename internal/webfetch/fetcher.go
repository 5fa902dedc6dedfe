// Package webfetch retrieves raw text from a set of reference URLs.
// Fetching is best-effort: each URL is fetched independently, individual
// failures are recorded per URL and never propagate, and the result slice
// preserves input order.
package webfetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// PageResult is the outcome of fetching one URL.
type PageResult struct {
	URL  string
	Text string

	// Err is the per-URL failure marker. Empty means the fetch succeeded.
	Err string
}

// OK reports whether this URL yielded usable text.
func (r PageResult) OK() bool {
	return r.Err == "" && r.Text != ""
}

// Fetcher retrieves and extracts text from web pages.
type Fetcher struct {
	client        *resty.Client
	maxConcurrent int
	maxBodyBytes  int64
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout       time.Duration
	MaxConcurrent int
	MaxBodyBytes  int64
	UserAgent     string
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = 5
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "campaign-engine/1.0"
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Fetcher{
		client:        client,
		maxConcurrent: opts.MaxConcurrent,
		maxBodyBytes:  opts.MaxBodyBytes,
	}
}

// Fetch retrieves every URL concurrently (bounded) and returns one
// PageResult per input URL, in input order.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) []PageResult {
	results := make([]PageResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrent)

	for i, u := range urls {
		g.Go(func() error {
			results[i] = f.fetchOne(gctx, u)
			// Per-URL failures are data, not errors; never cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, r := range results {
		if r.OK() {
			ok++
		}
	}
	log.Info().
		Int("urls", len(urls)).
		Int("successful", ok).
		Msg("Web content fetch complete")

	return results
}

// fetchOne retrieves a single URL and extracts its visible text.
func (f *Fetcher) fetchOne(ctx context.Context, url string) PageResult {
	start := time.Now()

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("URL fetch failed — skipping")
		return PageResult{URL: url, Err: err.Error()}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		log.Warn().Int("status", resp.StatusCode()).Str("url", url).Msg("URL fetch returned non-2xx — skipping")
		return PageResult{URL: url, Err: fmt.Sprintf("status %d", resp.StatusCode())}
	}

	body := resp.Body()
	if int64(len(body)) > f.maxBodyBytes {
		body = body[:f.maxBodyBytes]
	}

	text := ExtractText(string(body))
	if text == "" {
		return PageResult{URL: url, Err: "no extractable text"}
	}

	log.Debug().
		Str("url", url).
		Int("body_bytes", len(body)).
		Int("text_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("URL fetched")

	return PageResult{URL: url, Text: text}
}

// ExtractText strips markup from an HTML document and returns its visible
// text with collapsed whitespace. Script, style, and head content is skipped.
// Non-HTML input passes through with whitespace normalised.
func ExtractText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return collapseWhitespace(raw)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head", "iframe", "svg":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseWhitespace(sb.String())
}

// collapseWhitespace reduces all runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
