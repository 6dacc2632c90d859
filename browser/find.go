package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nevindra/trawl"
)

type findTool struct{ b *Browser }

func (t *findTool) Definitions() []trawl.ToolDefinition {
	return []trawl.ToolDefinition{{
		Name:        "find",
		Description: "Find literal text in the current page (case-insensitive). Calling again with the same pattern jumps to the next match.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"pattern":{"type":"string","description":"Text to look for"},"cursor":{"type":"number","description":"Page to search; defaults to the current page","default":-1}},"required":["pattern"]}`),
	}}
}

func (t *findTool) Execute(_ context.Context, _ string, args json.RawMessage) (trawl.ToolResult, error) {
	var params struct {
		Pattern string   `json:"pattern"`
		Cursor  *float64 `json:"cursor"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return trawl.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	if params.Pattern == "" {
		return trawl.ToolResult{Error: "pattern is required"}, nil
	}
	b := t.b

	src, _, err := b.store.Current(intArg(params.Cursor, -1))
	if err != nil {
		return trawl.ToolResult{Error: "no page is open"}, nil
	}

	fold := cases.Fold()
	pattern := fold.String(params.Pattern)

	title := src.Title
	from := 0
	if f := src.Find; f != nil {
		title = f.SourceTitle
		if fold.String(f.Pattern) == pattern {
			// continue below the current view, which open may have scrolled
			from = src.Start + 1
		}
	}

	doc := src
	doc.Find = &FindState{Pattern: params.Pattern, SourceTitle: title, Line: len(src.Lines)}
	for i := from; i < len(src.Lines); i++ {
		if strings.Contains(fold.String(src.Lines[i]), pattern) {
			doc.Find.Line = i
			break
		}
	}
	doc.Start = doc.Find.Line

	if doc.Find.Line == len(src.Lines) {
		doc.Title = fmt.Sprintf("%q not found in page %q", params.Pattern, title)
		return trawl.ToolResult{Error: b.view(doc)}, nil
	}
	doc.Title = fmt.Sprintf("Find results for %q in %q", params.Pattern, title)
	return trawl.ToolResult{Content: b.view(doc)}, nil
}
