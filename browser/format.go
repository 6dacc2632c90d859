package browser

import (
	"fmt"
	"strings"
)

// Format renders the window of doc the model sees: a header with the cursor,
// title, URL and visible range, then numbered lines from doc.Start until
// adding the next line would exceed maxWords. At least one line is shown
// when the window is not empty.
func Format(doc Document, cursor, maxWords int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s\n", cursor, doc.Title)
	if doc.URL != "" {
		fmt.Fprintf(&b, "(%s)\n", doc.URL)
	}

	start := max(doc.Start, 0)
	if start >= len(doc.Lines) {
		fmt.Fprintf(&b, "**no lines in view (document has %d lines)**\n", len(doc.Lines))
		return b.String()
	}

	end := start
	words := 0
	for end < len(doc.Lines) {
		n := len(strings.Fields(doc.Lines[end]))
		if end > start && words+n > maxWords {
			break
		}
		words += n
		end++
	}

	fmt.Fprintf(&b, "**viewing lines [%d - %d] of %d**\n\n", start, end-1, len(doc.Lines)-1)
	for i := start; i < end; i++ {
		fmt.Fprintf(&b, "L%d: %s\n", i, doc.Lines[i])
	}
	return b.String()
}
