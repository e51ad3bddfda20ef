package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "telegram-gateway",
	Short: "Read-only HTTP gateway in front of a Telegram user session",
	Long: `telegram-gateway exposes public channels and groups over plain HTTP.

It resolves chat handles, serves paginated message history as normalized
JSON, and relays media behind short-lived encrypted tokens. Run "login"
once to bootstrap the session credential, then "serve" to start the
gateway.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
