package openaicompat

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/nevindra/trawl"
)

// maxSSELine bounds a single SSE line.
const maxSSELine = 1024 * 1024

// sseStream decodes an SSE body into trawl.Deltas one chunk at a time.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	data: [DONE]\n
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	queue   []trawl.Delta
	done    bool
}

// NewSSEStream wraps body as a trawl.DeltaStream. Closing the stream closes
// body. Malformed chunks and non-data lines are skipped; [DONE] or the end of
// the body ends the stream with io.EOF.
func NewSSEStream(body io.ReadCloser) trawl.DeltaStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &sseStream{body: body, scanner: scanner}
}

func (s *sseStream) Recv() (trawl.Delta, error) {
	for len(s.queue) == 0 {
		if s.done {
			return trawl.Delta{}, io.EOF
		}
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return trawl.Delta{}, err
			}
			return trawl.Delta{}, io.EOF
		}

		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			return trawl.Delta{}, io.EOF
		}

		var chunk ChatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		s.queue = chunkDeltas(chunk)
	}

	d := s.queue[0]
	s.queue = s.queue[1:]
	return d, nil
}

func (s *sseStream) Close() error {
	return s.body.Close()
}

// chunkDeltas flattens one chunk into deltas. The first tool-call fragment
// rides on the same delta as any text; further fragments get their own.
func chunkDeltas(chunk ChatChunk) []trawl.Delta {
	var base trawl.Delta
	var extra []trawl.Delta

	if chunk.Usage != nil {
		base.Usage = &trawl.Usage{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
		}
	}

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		base.FinishReason = choice.FinishReason
		if d := choice.Delta; d != nil {
			base.Content = d.Content
			base.Reasoning = d.ReasoningContent
			if base.Reasoning == "" {
				base.Reasoning = d.Reasoning
			}
			for i, tc := range d.ToolCalls {
				frag := &trawl.ToolCallDelta{
					Index:     tc.Index,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				}
				if i == 0 {
					base.ToolCall = frag
					continue
				}
				extra = append(extra, trawl.Delta{ToolCall: frag})
			}
		}
	}

	if isEmpty(base) && len(extra) == 0 {
		return nil
	}
	return append([]trawl.Delta{base}, extra...)
}

func isEmpty(d trawl.Delta) bool {
	return d.Content == "" && d.Reasoning == "" && d.ToolCall == nil &&
		d.FinishReason == "" && d.Usage == nil
}

var _ trawl.DeltaStream = (*sseStream)(nil)
