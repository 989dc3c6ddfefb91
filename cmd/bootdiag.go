package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/bootdiag"
	"github.com/lakshaymaurya-felt/macmole/internal/core"
)

// bootdiagDiskPath is the filesystem whose usage is shown.
var bootdiagDiskPath = "/"

var bootdiagCmd = &cobra.Command{
	Use:   "bootdiag",
	Short: "Diagnose boot and recovery problems",
	Long: `Read-only report of macOS version, SIP state, disks and partitions,
boot volume, boot-args and free space. Exits 1 when no usable volume exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		rep, err := bootdiag.Gather(commandContext(cmd), e.runner, bootdiagDiskPath)
		if err != nil {
			return err
		}
		bootdiag.Render(e.out, rep)
		if len(rep.Usable()) == 0 {
			return core.Preconditionf("no usable disk found")
		}
		return nil
	},
}
