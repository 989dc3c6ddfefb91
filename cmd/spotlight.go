package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/spotlight"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

var spotlightAggressive bool

var spotlightCmd = &cobra.Command{
	Use:   "spotlight",
	Short: "Check and rebuild the Spotlight index",
}

var spotlightStatusCmd = &cobra.Command{
	Use:   "status [volume]",
	Short: "Show the indexing state of a volume",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		volume := volumeArg(args, e.cfg.Spotlight.Volume)
		st, err := spotlight.GetStatus(commandContext(cmd), e.runner, volume)
		if err != nil {
			return err
		}
		ui.KeyValue(e.out, [][2]string{
			{"Volume", st.Volume},
			{"Indexing", st.State.String()},
			{"Detail", st.Detail},
		})
		return nil
	},
}

var spotlightRebuildCmd = &cobra.Command{
	Use:   "rebuild [volume]",
	Short: "Erase and rebuild the index (requires root)",
	Long: `Turns indexing off, erases the index, turns it back on and restarts mds.
With --aggressive the on-disk .Spotlight-V100 store is deleted as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, spotlightAggressive)
		if err != nil {
			return err
		}
		volume := volumeArg(args, e.cfg.Spotlight.Volume)
		if err := spotlight.Rebuild(commandContext(cmd), e.guard, e.root, volume); err != nil {
			return err
		}
		e.guard.Report().Render(e.out)
		return nil
	},
}

func init() {
	spotlightRebuildCmd.Flags().BoolVar(&spotlightAggressive, "aggressive", false, "Also delete the .Spotlight-V100 index store")
	spotlightCmd.AddCommand(spotlightStatusCmd)
	spotlightCmd.AddCommand(spotlightRebuildCmd)
}

func volumeArg(args []string, def string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return def
}
