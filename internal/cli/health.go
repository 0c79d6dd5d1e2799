package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// errUnhealthy gives a non-zero exit after the degraded status is printed
var errUnhealthy = errors.New("server reports store unavailable")

func newHealthCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the server and its store are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)

			var result HealthResult
			err := client.DoContext(ctx, http.MethodGet, "/api/health", nil, &result)

			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Retryable() {
				out.Print(HealthResult{Status: "degraded", Store: "unavailable"})
				return errUnhealthy
			}
			if err != nil {
				return err
			}

			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Give up waiting for the server after this long")
	return cmd
}
