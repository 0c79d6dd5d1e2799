package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
	diag   zerolog.Logger
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "shellgame",
		Short: "CLI tool for the shell game API",
		Long: `shellgame is a CLI tool for playing the three-cup shell game.

Join the waiting list, watch the shared session, and guess which cup hides
the ball when it is your turn. Results and the leaderboard are available
to everyone.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load token from file if not provided via flag/env
			if err := cfg.LoadToken(); err != nil {
				return err
			}

			diag = newDiagnostics(cmd, cfg.Verbose)

			// Create HTTP client
			client = NewClient(cfg.ServerURL, cfg.Token, diag)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: SHELLGAME_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Login token (env: SHELLGAME_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: SHELLGAME_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newLeaveCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newGuessCmd())
	rootCmd.AddCommand(newResultsCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// newDiagnostics returns the stderr logger used for --verbose output
func newDiagnostics(cmd *cobra.Command, verbose bool) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: "15:04:05"}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
