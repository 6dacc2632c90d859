package browser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
)

// Citation is one resolved 【cursor†Lstart-Lend】 token.
type Citation struct {
	Index     int
	Title     string
	URL       string
	StartLine int
	EndLine   int
}

var citationPattern = regexp.MustCompile(`【(\d+)†L(\d+)(?:-L(\d+))?】`)

// ResolveCitations rewrites citation tokens in text into "[title](url) (La-Lb)"
// using the documents in store. Tokens naming a document the store does not
// hold are left as they are. Text without tokens is returned unchanged.
func ResolveCitations(text string, store *Store, logger *slog.Logger) (string, []Citation) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var cites []Citation
	out := citationPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := citationPattern.FindStringSubmatch(tok)
		idx, err1 := strconv.Atoi(m[1])
		start, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			logger.Warn("malformed citation", "token", tok)
			return tok
		}
		end := start
		if m[3] != "" {
			if e, err := strconv.Atoi(m[3]); err == nil {
				end = e
			}
		}
		doc, ok := store.Get(idx)
		if !ok {
			logger.Warn("citation references unknown document", "token", tok, "documents", store.Len())
			return tok
		}

		c := Citation{Index: idx, Title: doc.Title, URL: doc.URL, StartLine: start, EndLine: end}
		cites = append(cites, c)

		lines := fmt.Sprintf("L%d", start)
		if m[3] != "" {
			lines = fmt.Sprintf("L%d-L%d", start, end)
		}
		if doc.URL == "" {
			return fmt.Sprintf("%s (%s)", doc.Title, lines)
		}
		return fmt.Sprintf("[%s](%s) (%s)", doc.Title, doc.URL, lines)
	})
	return out, cites
}
