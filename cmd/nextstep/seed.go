package main

import (
	"github.com/Blaze-0903/NextStepAI/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the stored ontology with a seed file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, lg, err := setup(cmd.Context(), app.WithoutInitialReload())
		if err != nil {
			return err
		}
		defer teardown(c, lg)

		file, _ := cmd.Flags().GetString("file")
		if err := c.Seed(cmd.Context(), file); err != nil {
			return err
		}

		snap, err := c.Store.Reload(cmd.Context())
		if err != nil {
			return err
		}
		lg.Info("ontology seeded",
			zap.Int("skills", snap.SkillCount()),
			zap.Int("roles", snap.RoleCount()),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringP("file", "f", "", "ontology JSON file (default ONTOLOGY_SEED_FILE)")
}
