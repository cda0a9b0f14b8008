package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Run one ontology evolution pass and print its report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, lg, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer teardown(c, lg)

		report, err := c.Engine.Run(cmd.Context())
		if err != nil {
			return err
		}

		pretty, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evolveCmd)
}
