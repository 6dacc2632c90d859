package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nevindra/trawl"
)

const maxTopN = 50

type searchTool struct{ b *Browser }

func (t *searchTool) Definitions() []trawl.ToolDefinition {
	return []trawl.ToolDefinition{{
		Name:        "search",
		Description: "Search the web. Results are shown as a numbered list; open a result with open(id=<number>). Cite with 【cursor†Lstart-Lend】.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"Search query"},"topn":{"type":"number","description":"Number of results","default":10}},"required":["query"]}`),
	}}
}

func (t *searchTool) Execute(ctx context.Context, _ string, args json.RawMessage) (trawl.ToolResult, error) {
	var params struct {
		Query string   `json:"query"`
		TopN  *float64 `json:"topn"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return trawl.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return trawl.ToolResult{Error: "query is required"}, nil
	}
	b := t.b
	if b.searcher == nil {
		return trawl.ToolResult{Error: "web search is not configured"}, nil
	}

	topN := b.topN
	if params.TopN != nil && *params.TopN >= 1 {
		topN = int(*params.TopN)
	}
	topN = min(topN, maxTopN)

	results, err := b.searcher.Search(ctx, SearchQuery{
		Query:    query,
		TopN:     topN,
		Country:  b.country,
		Language: b.language,
	})
	if err != nil {
		b.logger.Warn("search failed", "query", query, "error", err)
		return trawl.ToolResult{Error: "search failed: " + err.Error()}, nil
	}
	if len(results) == 0 {
		return trawl.ToolResult{Error: fmt.Sprintf("no results for %q", query)}, nil
	}
	if len(results) > topN {
		results = results[:topN]
	}

	return trawl.ToolResult{Content: b.view(NewSearchDocument(query, results, b.wrapWidth))}, nil
}
