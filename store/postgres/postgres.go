// Package postgres implements trawl.TranscriptStore on PostgreSQL.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/trawl"
)

// Store implements trawl.TranscriptStore backed by PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the table name (default "transcript_messages").
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// WithLogger sets a structured logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

var _ trawl.TranscriptStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, table: "transcript_messages", logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates the transcript table and its index.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	t := pgx.Identifier{s.table}.Sanitize()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + t + ` (
			session_id TEXT NOT NULL,
			seq BIGINT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			reasoning TEXT,
			tool_calls JSONB,
			tool_call_id TEXT,
			created_at BIGINT NOT NULL,
			PRIMARY KEY (session_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS ` + pgx.Identifier{s.table + "_created_idx"}.Sanitize() + ` ON ` + t + ` (created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// AppendMessages appends msgs in one transaction. A per-session advisory
// lock keeps concurrent appends to the same session from interleaving.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs []trawl.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	t := pgx.Identifier{s.table}.Sanitize()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID); err != nil {
		return fmt.Errorf("postgres: lock session: %w", err)
	}

	var next int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM `+t+` WHERE session_id = $1`, sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("postgres: next seq: %w", err)
	}

	now := trawl.NowUnix()
	batch := &pgx.Batch{}
	for i, m := range msgs {
		calls, err := encodeToolCalls(m.ToolCalls)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO `+t+` (session_id, seq, role, content, reasoning, tool_calls, tool_call_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sessionID, next+int64(i), m.Role, m.Content, nullString(m.Reasoning), calls, nullString(m.ToolCallID), now,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: append messages: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	s.logger.Debug("postgres: append ok", "session", sessionID, "count", len(msgs))
	return nil
}

// LoadMessages returns the session's transcript oldest first.
func (s *Store) LoadMessages(ctx context.Context, sessionID string) ([]trawl.ChatMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role, content, reasoning, tool_calls, tool_call_id
		 FROM `+pgx.Identifier{s.table}.Sanitize()+`
		 WHERE session_id = $1
		 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: load messages: %w", err)
	}
	defer rows.Close()

	msgs := []trawl.ChatMessage{}
	for rows.Next() {
		var m trawl.ChatMessage
		var reasoning, callID *string
		var calls []byte
		if err := rows.Scan(&m.Role, &m.Content, &reasoning, &calls, &callID); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		if reasoning != nil {
			m.Reasoning = *reasoning
		}
		if callID != nil {
			m.ToolCallID = *callID
		}
		if m.ToolCalls, err = decodeToolCalls(calls); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate messages: %w", err)
	}
	return msgs, nil
}

// Sessions lists session ids, most recently active first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id FROM `+pgx.Identifier{s.table}.Sanitize()+`
		 GROUP BY session_id
		 ORDER BY MAX(created_at) DESC, session_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan sessions: %w", err)
	}
	return ids, nil
}

// Close is a no-op: the pool belongs to the caller.
func (s *Store) Close() error { return nil }

type storedCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

func encodeToolCalls(calls []trawl.ToolCall) ([]byte, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	out := make([]storedCall, len(calls))
	for i, c := range calls {
		out[i] = storedCall{ID: c.ID, Name: c.Name, Args: string(c.Args)}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode tool calls: %w", err)
	}
	return data, nil
}

func decodeToolCalls(data []byte) ([]trawl.ToolCall, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var in []storedCall
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("postgres: decode tool calls: %w", err)
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
