package cli

import (
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/codeaudit/internal/infra/db"
)

func newSeedDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-db",
		Short: "Create the database schema (safe to re-run)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := db.Seed(cmd.Context(), rt.conn, rt.dialect); err != nil {
				return err
			}
			rt.log.Info("schema ready", "driver", cfg.Database.Driver)
			return nil
		},
	}
}
