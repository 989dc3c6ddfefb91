package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
	"github.com/lakshaymaurya-felt/macmole/internal/whitelist"
)

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage paths clean must never touch",
}

var whitelistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List protected paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wl, err := whitelist.Load(whitelistDir())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		paths := wl.List()
		if len(paths) == 0 {
			ui.Info(out, "whitelist is empty (%s)", wl.Path())
			return nil
		}
		for _, p := range paths {
			ui.Info(out, "%s", p)
		}
		return nil
	},
}

var whitelistAddCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Protect one or more paths",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wl, err := whitelist.Load(whitelistDir())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range args {
			if dryRun {
				ui.DryRun(out, "would protect %s", core.ExpandHome(p))
				continue
			}
			if err := wl.Add(p); err != nil {
				return err
			}
			ui.Success(out, "protected %s", core.ExpandHome(p))
		}
		return nil
	},
}

var whitelistRemoveCmd = &cobra.Command{
	Use:   "remove <path>...",
	Short: "Stop protecting one or more paths",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wl, err := whitelist.Load(whitelistDir())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range args {
			if dryRun {
				if wl.Contains(p) {
					ui.DryRun(out, "would remove %s", p)
				} else {
					ui.Skipped(out, "%s was not whitelisted", p)
				}
				continue
			}
			removed, err := wl.Remove(p)
			if err != nil {
				return err
			}
			if removed {
				ui.Success(out, "removed %s", p)
			} else {
				ui.Skipped(out, "%s was not whitelisted", p)
			}
		}
		return nil
	},
}

func init() {
	whitelistCmd.AddCommand(whitelistListCmd)
	whitelistCmd.AddCommand(whitelistAddCmd)
	whitelistCmd.AddCommand(whitelistRemoveCmd)
}
