package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join [username]",
		Short: "Join the waiting list",
		Long: `Join the waiting list. A session starts as soon as three players are queued.

Without a username argument the logged-in user joins.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := cfg.ResolveUsername(args)
			if err != nil {
				return err
			}

			var result JoinResult
			if err := client.Post("/api/join-waiting-list", map[string]string{"username": username}, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave [username]",
		Short: "Leave the waiting list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := cfg.ResolveUsername(args)
			if err != nil {
				return err
			}

			var result WaitingList
			if err := client.Post("/api/leave-waiting-list", map[string]string{"username": username}, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session and waiting list",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SessionState
			if err := client.Get("/api/session", &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newGuessCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "guess <position>",
		Short: "Guess which cup hides the ball (0, 1 or 2)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid position: %w", err)
			}

			username, err := cfg.ResolveUsername([]string{user})
			if err != nil {
				return err
			}

			req := map[string]any{"username": username, "position": position}
			var result GuessResult
			if err := client.Post("/api/guess", req, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (defaults to the logged-in user)")

	return cmd
}
