// cmd/web/main.go
//
// billing-api – HTTP entry point.
//
// Boot sequence (shared by every subcommand)
// ------------------------------------------
//
//  0. Apply the --env-file overlay (default .env) to the process
//     environment.  Existing variables win; a missing file is skipped.
//
//  1. Load tunables (defaults → conf/app.yaml → APP_* overrides).
//
//  2. Start the daily rotating logger (tees to console in a TTY).
//
//  3. Connect to Vault when VAULT_ADDR is set, so `vault:` references in
//     DB_* and MAILGUN resolve.
//
//  4. Run the startup configurator and build the service registry.  Any
//     configuration error exits non-zero before a listener is bound.
//
// Subcommands: `serve` (default), `migrate`, and `migrate revert`.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version:       version,
	Use:           "billing-api",
	Short:         "Billing API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "environment overlay file; missing is not an error")
	rootCmd.PersistentFlags().String("root", "", "application root holding conf/app.yaml (default: APP_ROOT or discovered)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
