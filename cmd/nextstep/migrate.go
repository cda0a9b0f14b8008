package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/Blaze-0903/NextStepAI/internal/app"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, lg, err := setup(cmd.Context(), app.WithoutMigrations(), app.WithoutInitialReload())
		if err != nil {
			return err
		}
		defer teardown(c, lg)

		if c.DB == nil {
			return errors.New("DB_HOST is not set, nothing to migrate")
		}

		if status, _ := cmd.Flags().GetBool("status"); status {
			states, err := c.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tFILE\tAPPLIED")
			for _, st := range states {
				fmt.Fprintf(w, "%d\t%s\t%t\n", st.Version, st.Filename, st.Applied)
			}
			return w.Flush()
		}

		return c.Migrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("status", false, "list migrations and whether each is applied")
}
