package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nevindra/trawl"
)

const (
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// renderEvents prints stream events to w until ch is closed. Reasoning is
// dimmed, text is printed inline and tool calls show as "→ name(args)".
func renderEvents(w io.Writer, ch <-chan trawl.StreamEvent) {
	inReasoning := false
	for ev := range ch {
		switch ev.Type {
		case trawl.EventReasoningDelta:
			if !inReasoning {
				fmt.Fprint(w, ansiDim)
				inReasoning = true
			}
			fmt.Fprint(w, ev.Content)
		case trawl.EventTextDelta:
			if inReasoning {
				fmt.Fprint(w, ansiReset+"\n")
				inReasoning = false
			}
			fmt.Fprint(w, ev.Content)
		case trawl.EventToolCallStart:
			if inReasoning {
				fmt.Fprint(w, ansiReset+"\n")
				inReasoning = false
			}
			fmt.Fprintf(w, "→ %s(%s)\n", ev.Name, compactArgs(ev.Args))
		case trawl.EventToolCallResult:
			fmt.Fprintf(w, "%s  %s%s\n", ansiDim, firstLine(ev.Content), ansiReset)
		}
	}
	if inReasoning {
		fmt.Fprint(w, ansiReset)
	}
}

func compactArgs(args []byte) string {
	s := strings.TrimSpace(string(args))
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
