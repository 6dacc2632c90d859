package browser

import (
	"strings"
	"testing"
)

func TestHTMLToMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{
			name: "page",
			in: `<html><head><title>x</title><script>bad()</script></head><body>` +
				`<h1>Title</h1><p>Hello <b>world</b> and <a href="/x">link</a>.</p>` +
				`<ul><li>one</li><li>two</li></ul></body></html>`,
			want:    []string{"# Title", "Hello **world** and [link](/x).", "one", "two"},
			notWant: []string{"bad()"},
		},
		{
			name: "ordered list",
			in:   `<ol><li>a</li><li>b</li></ol>`,
			want: []string{"1. a", "2. b"},
		},
		{
			name: "preformatted",
			in:   "<pre><code>x := 1\ny</code></pre>",
			want: []string{"```", "x := 1\ny"},
		},
		{
			name:    "noise dropped",
			in:      `<style>p{}</style><nav><a href="/">Home</a></nav><p>kept</p><form><button>Go</button></form><script>gone()</script><!-- note -->`,
			want:    []string{"kept"},
			notWant: []string{"p{}", "Home", "Go", "gone()", "note"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTMLToMarkdown(tt.in)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("HTMLToMarkdown = %q, missing %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("HTMLToMarkdown = %q, should not contain %q", got, w)
				}
			}
			if strings.Contains(got, "\n\n\n") {
				t.Errorf("blank runs not collapsed: %q", got)
			}
		})
	}
}

func TestHTMLToMarkdownEmpty(t *testing.T) {
	if got := HTMLToMarkdown(""); got != "" {
		t.Errorf("HTMLToMarkdown(\"\") = %q", got)
	}
}
