package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanizio/chefsite/internal/database"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the database schema",
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create any missing tables",
	Long: `Run every embedded schema file in order.  Statements are
CREATE TABLE IF NOT EXISTS, so applying twice is harmless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		p, err := openStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer p.Close()

		if err := database.ApplySchema(ctx, p); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	},
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List embedded schema files in apply order",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := database.SchemaFiles()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaApplyCmd, schemaListCmd)
	rootCmd.AddCommand(schemaCmd)
}
