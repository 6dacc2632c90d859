package browser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// NewDocument renders markdown into a Document. Links become 【i†text†host】
// tokens (【i†text】 when the target is on the page's own host) and are
// recorded in Links, one entry per distinct URL.
func NewDocument(title, pageURL, markdown string, width int) Document {
	base, _ := url.Parse(pageURL)
	lr := &lineRenderer{base: base, index: make(map[string]int)}

	gm := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Table),
		goldmark.WithRenderer(renderer.NewRenderer(
			renderer.WithNodeRenderers(util.Prioritized(lr, 1)),
		)),
	)

	var buf bytes.Buffer
	text := markdown
	if err := gm.Convert([]byte(markdown), &buf); err == nil {
		text = buf.String()
	}

	return Document{
		Title: title,
		URL:   pageURL,
		Lines: wrapText(text, width),
		Links: lr.links,
		Width: width,
	}
}

// NewSearchDocument lists search results, one link token per result
// followed by its wrapped description.
func NewSearchDocument(query string, results []SearchResult, width int) Document {
	doc := Document{
		Title: fmt.Sprintf("Search results for %q", query),
		Width: width,
	}
	for i, r := range results {
		title := cleanLinkText(r.Title)
		if title == "" {
			title = r.URL
		}
		if i > 0 {
			doc.Lines = append(doc.Lines, "")
		}
		doc.Lines = append(doc.Lines, wrapLine(linkToken(len(doc.Links), title, hostOf(r.URL)), width)...)
		if d := strings.TrimSpace(r.Description); d != "" {
			doc.Lines = append(doc.Lines, wrapText(d, width)...)
		}
		doc.Links = append(doc.Links, Link{Title: title, URL: r.URL})
	}
	return doc
}

func linkToken(i int, text, host string) string {
	if host == "" {
		return fmt.Sprintf("【%d†%s】", i, text)
	}
	return fmt.Sprintf("【%d†%s†%s】", i, text, host)
}

// hostOf returns the host of raw without a leading "www.".
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// cleanLinkText flattens s to one line and strips the token delimiters.
func cleanLinkText(s string) string {
	s = strings.NewReplacer("†", " ", "【", "", "】", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// lineRenderer is a goldmark NodeRenderer that emits plain text with
// numbered link tokens.
type lineRenderer struct {
	base  *url.URL
	links []Link
	index map[string]int

	listCounters []int
	linkStack    []string // closing token per open link, "" when not rendered as a token
}

func (r *lineRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	// Block nodes
	reg.Register(ast.KindDocument, r.renderContainer)
	reg.Register(ast.KindHeading, r.renderHeading)
	reg.Register(ast.KindParagraph, r.renderParagraph)
	reg.Register(ast.KindBlockquote, r.renderContainer)
	reg.Register(ast.KindFencedCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindList, r.renderList)
	reg.Register(ast.KindListItem, r.renderListItem)
	reg.Register(ast.KindTextBlock, r.renderTextBlock)
	reg.Register(ast.KindThematicBreak, r.renderThematicBreak)
	reg.Register(ast.KindHTMLBlock, r.skip)

	// Inline nodes
	reg.Register(ast.KindText, r.renderText)
	reg.Register(ast.KindString, r.renderString)
	reg.Register(ast.KindCodeSpan, r.renderCodeSpan)
	reg.Register(ast.KindEmphasis, r.renderContainer)
	reg.Register(ast.KindLink, r.renderLink)
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
	reg.Register(ast.KindImage, r.skip)
	reg.Register(ast.KindRawHTML, r.skip)

	// Extensions
	reg.Register(extast.KindStrikethrough, r.renderContainer)
	reg.Register(extast.KindTable, r.renderParagraph)
	reg.Register(extast.KindTableHeader, r.renderTableRow)
	reg.Register(extast.KindTableRow, r.renderTableRow)
	reg.Register(extast.KindTableCell, r.renderTableCell)
}

func (r *lineRenderer) renderContainer(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkContinue, nil
}

func (r *lineRenderer) skip(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkSkipChildren, nil
}

func (r *lineRenderer) renderHeading(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("\n" + strings.Repeat("#", node.(*ast.Heading).Level) + " ")
	} else {
		_, _ = w.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderParagraph(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			_, _ = w.Write(line.Value(source))
		}
		_, _ = w.WriteString("\n")
	}
	return ast.WalkSkipChildren, nil
}

func (r *lineRenderer) renderList(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.List)
	if entering {
		r.listCounters = append(r.listCounters, n.Start)
	} else {
		r.listCounters = r.listCounters[:len(r.listCounters)-1]
		_, _ = w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderListItem(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n")
		return ast.WalkContinue, nil
	}
	depth := len(r.listCounters) - 1
	_, _ = w.WriteString(strings.Repeat("  ", max(depth, 0)))
	if parent, ok := node.Parent().(*ast.List); ok && parent.IsOrdered() {
		_, _ = fmt.Fprintf(w, "%d. ", r.listCounters[depth])
		r.listCounters[depth]++
	} else {
		_, _ = w.WriteString("* ")
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderTextBlock(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering && node.NextSibling() != nil {
		_, _ = w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderThematicBreak(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("\n---\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderTableRow(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderTableCell(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering && node.NextSibling() != nil {
		_, _ = w.WriteString(" | ")
	}
	return ast.WalkContinue, nil
}

// --- Inline renderers ---

func (r *lineRenderer) renderText(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Text)
	_, _ = w.WriteString(r.escape(string(n.Segment.Value(source))))
	if n.HardLineBreak() {
		_, _ = w.WriteString("\n")
	} else if n.SoftLineBreak() {
		_, _ = w.WriteString(" ")
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderString(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(r.escape(string(node.(*ast.String).Value)))
	}
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderCodeSpan(w util.BufWriter, _ []byte, _ ast.Node, _ bool) (ast.WalkStatus, error) {
	_, _ = w.WriteString("`")
	return ast.WalkContinue, nil
}

func (r *lineRenderer) renderLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)
	if !entering {
		closing := r.linkStack[len(r.linkStack)-1]
		r.linkStack = r.linkStack[:len(r.linkStack)-1]
		_, _ = w.WriteString(closing)
		return ast.WalkContinue, nil
	}

	// Link text inside another link token would corrupt it.
	if len(r.linkStack) > 0 && r.linkStack[len(r.linkStack)-1] != "" {
		r.linkStack = append(r.linkStack, "")
		return ast.WalkContinue, nil
	}

	target, ok := r.resolve(string(n.Destination))
	if !ok {
		r.linkStack = append(r.linkStack, "")
		return ast.WalkContinue, nil
	}
	if text := cleanLinkText(plainText(node, source)); text != "" {
		_, _ = fmt.Fprintf(w, "【%d†", r.addLink(text, target))
		r.linkStack = append(r.linkStack, r.tokenTail(target))
		return ast.WalkContinue, nil
	}

	// No visible text (an image link, say): label it with the host.
	text := hostOf(target)
	if text == "" {
		text = target
	}
	_, _ = fmt.Fprintf(w, "【%d†%s%s", r.addLink(text, target), text, r.tokenTail(target))
	r.linkStack = append(r.linkStack, "")
	return ast.WalkSkipChildren, nil
}

func (r *lineRenderer) renderAutoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.AutoLink)
	raw := string(n.URL(source))
	target, ok := r.resolve(raw)
	if !ok || n.AutoLinkType != ast.AutoLinkURL {
		_, _ = w.WriteString(raw)
		return ast.WalkContinue, nil
	}
	i := r.addLink(raw, target)
	_, _ = fmt.Fprintf(w, "【%d†%s%s", i, cleanLinkText(raw), r.tokenTail(target))
	return ast.WalkContinue, nil
}

// resolve turns href into an absolute http(s) URL relative to the page.
func (r *lineRenderer) resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if r.base != nil && r.base.IsAbs() {
		u = r.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

func (r *lineRenderer) addLink(title, target string) int {
	if i, ok := r.index[target]; ok {
		return i
	}
	i := len(r.links)
	r.links = append(r.links, Link{Title: title, URL: target})
	r.index[target] = i
	return i
}

// tokenTail closes a link token, naming the host for cross-site targets.
func (r *lineRenderer) tokenTail(target string) string {
	host := hostOf(target)
	if r.base != nil && host == strings.TrimPrefix(r.base.Hostname(), "www.") {
		return "】"
	}
	return "†" + host + "】"
}

// escape strips token delimiters from page text, and flattens text inside
// a link token to keep it on one logical line.
func (r *lineRenderer) escape(s string) string {
	if len(r.linkStack) > 0 && r.linkStack[len(r.linkStack)-1] != "" {
		return strings.NewReplacer("†", " ", "【", "", "】", "", "\n", " ").Replace(s)
	}
	return strings.NewReplacer("【", "[", "】", "]").Replace(s)
}

// plainText concatenates the text segments under node.
func plainText(node ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
