package main

import (
	"github.com/spf13/cobra"

	"github.com/yanizio/billing-api/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := boot(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		applied, err := migrate.New(a.reg.Databases(), a.reg.Migrations(), a.log).Apply(cmd.Context())
		if err != nil {
			a.log.Errorw("migrate failed", "err", err)
			return err
		}
		a.log.Infow("migrations applied", "count", len(applied), "names", applied)
		return nil
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Revert the last migration batch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := boot(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		reverted, err := migrate.New(a.reg.Databases(), a.reg.Migrations(), a.log).Revert(cmd.Context())
		if err != nil {
			a.log.Errorw("revert failed", "err", err)
			return err
		}
		a.log.Infow("migrations reverted", "count", len(reverted), "names", reverted)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(migrateCmd)
}
