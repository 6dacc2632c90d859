// Package sqlite implements trawl.TranscriptStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nevindra/trawl"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing and row counts. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements trawl.TranscriptStore backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ trawl.TranscriptStore = (*Store)(nil)

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the transcript table.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transcript_messages (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			reasoning TEXT,
			tool_calls TEXT,
			tool_call_id TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transcript_created ON transcript_messages(created_at)`,
	}
	for _, ddl := range stmts {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	s.logger.Debug("sqlite: init ok")
	return nil
}

// AppendMessages appends msgs to the session's transcript in one
// transaction. Either all messages are stored or none.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs []trawl.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM transcript_messages WHERE session_id = ?`,
		sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	now := trawl.NowUnix()
	for i, m := range msgs {
		calls, err := encodeToolCalls(m.ToolCalls)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcript_messages (session_id, seq, role, content, reasoning, tool_calls, tool_call_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, next+int64(i), m.Role, m.Content, nullString(m.Reasoning), calls, nullString(m.ToolCallID), now,
		); err != nil {
			s.logger.Error("sqlite: append failed", "session", sessionID, "error", err, "duration", time.Since(start))
			return fmt.Errorf("append message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("sqlite: append ok", "session", sessionID, "count", len(msgs), "duration", time.Since(start))
	return nil
}

// LoadMessages returns the session's transcript oldest first.
func (s *Store) LoadMessages(ctx context.Context, sessionID string) ([]trawl.ChatMessage, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, reasoning, tool_calls, tool_call_id
		 FROM transcript_messages
		 WHERE session_id = ?
		 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	msgs := []trawl.ChatMessage{}
	for rows.Next() {
		var m trawl.ChatMessage
		var reasoning, calls, callID sql.NullString
		if err := rows.Scan(&m.Role, &m.Content, &reasoning, &calls, &callID); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Reasoning = reasoning.String
		m.ToolCallID = callID.String
		if m.ToolCalls, err = decodeToolCalls(calls.String); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	s.logger.Debug("sqlite: load ok", "session", sessionID, "count", len(msgs), "duration", time.Since(start))
	return msgs, nil
}

// Sessions lists session ids, most recently active first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM transcript_messages
		 GROUP BY session_id
		 ORDER BY MAX(created_at) DESC, session_id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}

// storedCall keeps arguments as text: streamed arguments are not
// guaranteed to be valid JSON.
type storedCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

func encodeToolCalls(calls []trawl.ToolCall) (*string, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	out := make([]storedCall, len(calls))
	for i, c := range calls {
		out[i] = storedCall{ID: c.ID, Name: c.Name, Args: string(c.Args)}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode tool calls: %w", err)
	}
	v := string(data)
	return &v, nil
}

func decodeToolCalls(s string) ([]trawl.ToolCall, error) {
	if s == "" {
		return nil, nil
	}
	var in []storedCall
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return nil, fmt.Errorf("decode tool calls: %w", err)
	}
	calls := make([]trawl.ToolCall, len(in))
	for i, c := range in {
		calls[i] = trawl.ToolCall{ID: c.ID, Name: c.Name, Args: json.RawMessage(c.Args)}
	}
	return calls, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
