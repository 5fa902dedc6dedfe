package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractText(t *testing.T) {
	raw := `<html><head><title>ignored</title><style>p{color:red}</style></head>
<body><script>var x = 1;</script><h1>Fresh Coffee</h1><p>Roasted   daily in
Portland.</p><noscript>enable js</noscript></body></html>`

	got := ExtractText(raw)

	if strings.Contains(got, "var x") {
		t.Error("script content should be stripped")
	}
	if strings.Contains(got, "color:red") {
		t.Error("style content should be stripped")
	}
	if strings.Contains(got, "enable js") {
		t.Error("noscript content should be stripped")
	}
	if !strings.Contains(got, "Fresh Coffee") {
		t.Errorf("expected heading text in output, got %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("whitespace should be collapsed, got %q", got)
	}
}

func TestFetch_PartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>hello world</p></body></html>"))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := New(Options{Timeout: 5 * time.Second, MaxConcurrent: 2, MaxBodyBytes: 1 << 20})

	urls := []string{good.URL, bad.URL, good.URL + "/second"}
	results := f.Fetch(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("expected %d results, got %d", len(urls), len(results))
	}

	// Result order must match input order.
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("result %d: expected URL %s, got %s", i, urls[i], r.URL)
		}
	}

	if !results[0].OK() {
		t.Errorf("first URL should succeed, got error: %v", results[0].Err)
	}
	if results[1].OK() {
		t.Error("second URL should have failed")
	}
	// A failing sibling must not prevent the others from completing.
	if !results[2].OK() {
		t.Errorf("third URL should succeed despite sibling failure, got: %v", results[2].Err)
	}

	if !strings.Contains(results[0].Text, "hello world") {
		t.Errorf("expected extracted text, got %q", results[0].Text)
	}
}

func TestFetch_Empty(t *testing.T) {
	f := New(Options{})
	results := f.Fetch(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results for no URLs, got %d", len(results))
	}
}

func TestFetch_UserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	f := New(Options{UserAgent: "campaign-engine-test/1.0"})
	f.Fetch(context.Background(), []string{srv.URL})

	if gotUA != "campaign-engine-test/1.0" {
		t.Errorf("expected custom user agent, got %q", gotUA)
	}
}
