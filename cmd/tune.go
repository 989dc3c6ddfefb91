package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/tune"
)

var (
	tunePersist bool

	// tunePlistPath is replaced in tests.
	tunePlistPath = tune.DaemonPlistPath
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Apply the network and power tuning profiles",
	Long: `Compares and applies the sysctl network profile and the pmset power
profile from the config file. Only settings that differ are changed.`,
}

var tuneShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Compare current settings with the profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		st := tune.Read(commandContext(cmd), e.runner, e.cfg.Tune.Network, e.cfg.Tune.Power)
		tune.Show(e.out, st)
		return nil
	},
}

var tuneNetworkCmd = &cobra.Command{
	Use:   "network",
	Short: "Apply the sysctl network profile (requires root)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		if err := tune.ApplyNetwork(ctx, e.guard, e.root, e.cfg.Tune.Network); err != nil {
			return err
		}
		if tunePersist {
			if err := tune.Persist(ctx, e.guard, e.root, tunePlistPath, e.cfg.Tune.Network); err != nil {
				return err
			}
		}
		e.guard.Report().Render(e.out)
		return nil
	},
}

var tunePowerCmd = &cobra.Command{
	Use:   "power",
	Short: "Apply the pmset power profile (requires root)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		if err := tune.ApplyPower(commandContext(cmd), e.guard, e.root, e.cfg.Tune.Power); err != nil {
			return err
		}
		e.guard.Report().Render(e.out)
		return nil
	},
}

var tuneRevertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Remove the boot-time sysctl job (requires root)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		if err := tune.Revert(commandContext(cmd), e.guard, e.root, tunePlistPath); err != nil {
			return err
		}
		e.guard.Report().Render(e.out)
		return nil
	},
}

func init() {
	tuneNetworkCmd.Flags().BoolVar(&tunePersist, "persist", false, "Install a LaunchDaemon that re-applies the profile at boot")

	tuneCmd.AddCommand(tuneShowCmd)
	tuneCmd.AddCommand(tuneNetworkCmd)
	tuneCmd.AddCommand(tunePowerCmd)
	tuneCmd.AddCommand(tuneRevertCmd)
}
