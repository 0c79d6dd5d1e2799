package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	minWatchInterval = 2 * time.Second
	maxWatchInterval = 5 * time.Second
)

func newWatchCmd() *cobra.Command {
	var (
		interval time.Duration
		count    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the session and print it whenever it changes",
		Long: `Poll the shared session and waiting list, printing the state each time it
changes. Polling failures are retried on the next tick; use --verbose to see them.

Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval < minWatchInterval || interval > maxWatchInterval {
				return fmt.Errorf("--interval must be between %s and %s", minWatchInterval, maxWatchInterval)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := &watcher{
				out:      NewOutput(cmd.OutOrStdout(), cfg.Output),
				interval: interval,
				count:    count,
			}
			return w.run(ctx)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "Polling interval (2s to 5s)")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many polls (0 polls until interrupted)")

	return cmd
}

type watcher struct {
	out      *Output
	interval time.Duration
	count    int

	last []byte
}

func (w *watcher) run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		w.poll(ctx)

		if w.count > 0 && polls >= w.count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll fetches the session once and prints it if it differs from the last print
func (w *watcher) poll(ctx context.Context) {
	var raw json.RawMessage
	if err := client.DoContext(ctx, http.MethodGet, "/api/session", nil, &raw); err != nil {
		if ctx.Err() != nil {
			return
		}
		event := diag.Warn().Err(err)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Retryable() {
			if secs, convErr := strconv.Atoi(apiErr.RetryAfter); convErr == nil {
				event = event.Dur("retry_after", time.Duration(secs)*time.Second)
			}
		}
		event.Dur("next_poll", w.interval).Msg("poll failed, retrying")
		return
	}

	if bytes.Equal(raw, w.last) {
		diag.Debug().Msg("session unchanged")
		return
	}
	w.last = raw

	var state SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		diag.Warn().Err(err).Msg("unreadable session response")
		return
	}

	if w.out.format != "json" {
		w.out.printf("--- %s ---\n", time.Now().Format(time.TimeOnly))
	}
	w.out.Print(state)
}
