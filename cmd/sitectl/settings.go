package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanizio/chefsite/internal/app"
	"github.com/yanizio/chefsite/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change site settings",
}

// openSettings builds the store on the configured backend.
func openSettings(cmd *cobra.Command) (*settings.Store, func(), error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	p := app.OpenStore(ctx, cfg.Database)
	st, _, err := app.SettingsStore(cfg.Settings, p)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return st, func() { p.Close() }, nil
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, done, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer done()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st.Get(cmd.Context()))
	},
}

var settingsPresetCmd = &cobra.Command{
	Use:   "preset NAME",
	Short: "Switch the theme to a named preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, done, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer done()

		cur, err := st.Current(cmd.Context())
		if err != nil {
			return err
		}
		theme, ok := settings.ApplyPreset(cur.Theme, args[0])
		if !ok {
			return fmt.Errorf("unknown preset %q", args[0])
		}
		cur.Theme = theme
		if !st.Save(cmd.Context(), cur) {
			return errors.New("settings could not be saved")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "theme preset set to %s\n", theme.Preset)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsPresetCmd)
	rootCmd.AddCommand(settingsCmd)
}
