package chrome

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestScrapeInvalidURL(t *testing.T) {
	if _, err := New().Scrape(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error")
	}
}

func TestOptions(t *testing.T) {
	s := New(WithTimeout(time.Second), WithUserAgent("ua"), WithExecPath("/bin/chrome"))
	if s.timeout != time.Second || s.userAgent != "ua" || s.execPath != "/bin/chrome" {
		t.Errorf("scraper = %+v", s)
	}
}

func TestScrapeRendersPage(t *testing.T) {
	path := ""
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		t.Skip("no Chrome binary on PATH")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Rendered</title></head><body><div id="c"></div>
<script>document.getElementById("c").innerHTML = "<p>" + "Content produced by script. ".repeat(20) + "</p>";</script>
</body></html>`))
	}))
	defer srv.Close()

	page, err := New(WithExecPath(path), WithTimeout(20*time.Second)).Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(page.Markdown, "Content produced by script") {
		t.Errorf("markdown = %q", page.Markdown)
	}
}
