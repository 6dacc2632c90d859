package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nevindra/trawl"
	"github.com/nevindra/trawl/internal/config"
)

// sessionLister is a transcript store that can enumerate its sessions.
type sessionLister interface {
	Sessions(ctx context.Context, limit int) ([]string, error)
}

func sessionsCMD(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := openTranscript(ctx, cfg.Transcript, newLogger(cfg.Log.Level))
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no transcript driver configured; set [transcript] driver")
			}
			defer store.Close()
			return listSessions(ctx, store, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of sessions to list")
	return cmd
}

func listSessions(ctx context.Context, store trawl.TranscriptStore, limit int, out io.Writer) error {
	lister, ok := store.(sessionLister)
	if !ok {
		return fmt.Errorf("transcript store %T cannot list sessions", store)
	}
	ids, err := lister.Sessions(ctx, limit)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}
