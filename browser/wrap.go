package browser

import (
	"strings"
	"unicode/utf8"
)

// wrapLine breaks s into lines of at most width runes on word boundaries.
// A link token 【...】 is never split, and a single word longer than width
// gets a line of its own.
func wrapLine(s string, width int) []string {
	words := wrapWords(s)
	if len(words) == 0 {
		return []string{""}
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if curLen > 0 && curLen+1+wl > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// wrapWords splits on whitespace but keeps each 【...】 token whole.
func wrapWords(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	depth := 0
	for _, f := range fields {
		if depth > 0 {
			out[len(out)-1] += " " + f
		} else {
			out = append(out, f)
		}
		depth += strings.Count(f, "【") - strings.Count(f, "】")
		if depth < 0 {
			depth = 0
		}
	}
	return out
}

// wrapText wraps every line of text and collapses runs of blank lines.
func wrapText(text string, width int) []string {
	var out []string
	blank := true
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, wrapLine(raw, width)...)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
