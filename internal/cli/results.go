package cli

import (
	"github.com/spf13/cobra"
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Result ledger commands",
	}

	cmd.AddCommand(newResultsListCmd())
	cmd.AddCommand(newResultsReportCmd())

	return cmd
}

func newResultsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every recorded result",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ResultList
			if err := client.Get("/api/results", &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newResultsReportCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "report <win|lose>",
		Short: "Record a practice result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := cfg.ResolveUsername([]string{user})
			if err != nil {
				return err
			}

			req := map[string]string{"username": username, "outcome": args[0]}
			var result ResultEntry
			if err := client.Post("/api/results", req, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (defaults to the logged-in user)")

	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show players ranked by wins",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Leaderboard
			if err := client.Get("/api/leaderboard", &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}
