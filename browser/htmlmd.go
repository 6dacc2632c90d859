package browser

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// noise is markup that never carries readable page text.
var noise = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Form:     true,
	atom.Button:   true,
	atom.Select:   true,
	atom.Nav:      true,
}

// HTMLToMarkdown converts an HTML fragment or page into markdown. Scripts,
// styles, forms and navigation are dropped first. It returns "" when the
// input cannot be converted.
func HTMLToMarkdown(src string) string {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return ""
	}
	prune(root)
	md, err := htmltomarkdown.ConvertNode(root)
	if err != nil {
		return ""
	}
	return tidyMarkdown(string(md))
}

func prune(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && noise[c.DataAtom]:
			n.RemoveChild(c)
		default:
			prune(c)
		}
		c = next
	}
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func tidyMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
