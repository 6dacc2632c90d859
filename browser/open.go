package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/nevindra/trawl"
)

// TargetKind says what an open call points at.
type TargetKind int

const (
	// TargetNone re-opens the current document, optionally at a new line.
	TargetNone TargetKind = iota
	// TargetURL fetches a URL.
	TargetURL
	// TargetLink follows a numbered link of the current document.
	TargetLink
)

// OpenTarget is the decoded id argument of open: a URL string, a link
// number, or nothing.
type OpenTarget struct {
	Kind  TargetKind
	URL   string
	Index int
}

// UnmarshalJSON accepts a string (URL), a number (link index) or null.
// Negative numbers and empty strings mean TargetNone.
func (t *OpenTarget) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = OpenTarget{Kind: TargetNone}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s != "" {
			*t = OpenTarget{Kind: TargetURL, URL: normalizeURL(s)}
		}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or a URL string")
	}
	if n >= 0 && n == math.Trunc(n) {
		*t = OpenTarget{Kind: TargetLink, Index: int(n)}
	}
	return nil
}

// normalizeURL adds an https scheme to bare host/path strings.
func normalizeURL(s string) string {
	if strings.Contains(s, "://") {
		return s
	}
	return "https://" + strings.TrimPrefix(s, "//")
}

type openTool struct{ b *Browser }

func (t *openTool) Definitions() []trawl.ToolDefinition {
	return []trawl.ToolDefinition{{
		Name:        "open",
		Description: "Open a link number from the current page, a URL, or (with no id) scroll the current page to line loc.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"cursor":{"type":"number","description":"Page to act on; defaults to the current page","default":-1},"id":{"type":["number","string"],"description":"Link number on the page, or a full URL","default":-1},"loc":{"type":"number","description":"Line number to start viewing from","default":-1}}}`),
	}}
}

func (t *openTool) Execute(ctx context.Context, _ string, args json.RawMessage) (trawl.ToolResult, error) {
	params := struct {
		Cursor *float64   `json:"cursor"`
		ID     OpenTarget `json:"id"`
		Loc    *float64   `json:"loc"`
	}{}
	if err := json.Unmarshal(args, &params); err != nil {
		return trawl.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	cursor := intArg(params.Cursor, -1)
	loc := intArg(params.Loc, -1)
	b := t.b

	var doc Document
	switch target := params.ID; target.Kind {
	case TargetURL:
		d, err := b.fetchDocument(ctx, target.URL, "")
		if err != nil {
			return trawl.ToolResult{Error: err.Error()}, nil
		}
		doc = d

	case TargetLink:
		cur, _, err := b.store.Current(cursor)
		if err != nil {
			return trawl.ToolResult{Error: "no page is open to follow a link from"}, nil
		}
		if target.Index >= len(cur.Links) {
			b.logger.Debug("link id out of range, reopening current page", "id", target.Index, "links", len(cur.Links))
			doc = cur
			break
		}
		link := cur.Links[target.Index]
		d, err := b.fetchDocument(ctx, link.URL, link.Title)
		if err != nil {
			return trawl.ToolResult{Error: err.Error()}, nil
		}
		doc = d

	default:
		cur, _, err := b.store.Current(cursor)
		if err != nil {
			return trawl.ToolResult{Error: "no page is open"}, nil
		}
		doc = cur
	}

	if loc >= 0 {
		doc.Start = loc
	}
	return trawl.ToolResult{Content: b.view(doc)}, nil
}

func intArg(v *float64, def int) int {
	if v == nil {
		return def
	}
	return int(*v)
}
