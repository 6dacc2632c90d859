package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nevindra/trawl"
)

func chatCMD(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive research chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s (ctrl-d to quit)\n", a.session.ID())
			return chatLoop(ctx, a, cmd.InOrStdin(), out)
		},
	}
}

func chatLoop(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		res, err := runTurn(ctx, a, input, out)
		var maxIter *trawl.ErrMaxIterations
		switch {
		case errors.As(err, &maxIter):
			fmt.Fprintf(out, "\n[gave up after %d steps]\n", maxIter.Limit)
			continue
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(out, "\n[cancelled]")
			continue
		case err != nil:
			return err
		}
		if res.Answer != res.Raw {
			fmt.Fprintf(out, "\n\n%s\n", res.Answer)
		} else {
			fmt.Fprintln(out)
		}
	}
}

// runTurn runs one turn with ctrl-c bound to cancelling just that turn.
func runTurn(ctx context.Context, a *app, input string, out io.Writer) (trawl.TurnResult, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	ch := make(chan trawl.StreamEvent, 64)
	done := make(chan struct{})
	go func() {
		renderEvents(out, ch)
		close(done)
	}()
	res, err := a.session.Turn(ctx, input, ch)
	close(ch)
	<-done
	return res, err
}
