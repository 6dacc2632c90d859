package trawl

import (
	"context"
	"time"
)

// TranscriptStore persists committed session history. Implementations keep
// messages in append order per session.
type TranscriptStore interface {
	// Init creates tables and indexes. Safe to call more than once.
	Init(ctx context.Context) error
	AppendMessages(ctx context.Context, sessionID string, msgs []ChatMessage) error
	// LoadMessages returns every message of sessionID in the order it was
	// appended. An unknown session yields an empty slice.
	LoadMessages(ctx context.Context, sessionID string) ([]ChatMessage, error)
	Close() error
}

// NowUnix returns the current time as a Unix timestamp in seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
