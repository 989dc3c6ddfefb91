package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/mdm"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// mdmRoot is the filesystem root records are read from. Replaced in tests.
var mdmRoot = "/"

var mdmCmd = &cobra.Command{
	Use:   "mdm",
	Short: "Inspect, back up and remove MDM enrollment records",
}

var mdmStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show MDM enrollment state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		en, err := mdm.Status(commandContext(cmd), e.runner)
		if err != nil {
			return err
		}
		server := en.Server
		if server == "" {
			server = "(none)"
		}
		ui.KeyValue(e.out, [][2]string{
			{"Enrolled", yesNo(en.Enrolled)},
			{"User approved", yesNo(en.UserApproved)},
			{"Via DEP", yesNo(en.DEP)},
			{"Server", server},
		})
		return nil
	},
}

var mdmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration profile records on disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		records, err := mdm.ListRecords(mdmRoot)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			ui.Info(out, "no MDM records found")
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(out, "  %s  %s\n", r.Path, ui.MutedStyle.Render(core.FormatSize(r.Size)))
		}
		return nil
	},
}

var mdmBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy MDM records and a restore script to the backup root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		_, err = backupRecords(e)
		return err
	},
}

var mdmRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Back up, then remove MDM records (requires root, SIP disabled)",
	Long: `Writes a fresh backup under mdm.backup_root, then deletes every
configuration profile record and runs profiles remove -all -forced.
Refuses to run as a non-root user or while SIP is enabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		if err := mdm.CheckRemovable(ctx, e.runner, e.root); err != nil {
			return err
		}

		records, err := mdm.ListRecords(mdmRoot)
		if err != nil {
			return err
		}
		dir, err := backupRecords(e)
		if err != nil {
			return err
		}

		if err := mdm.Remove(ctx, e.guard, e.root, dir, records); err != nil {
			return err
		}
		e.guard.Report().Render(e.out)
		return nil
	},
}

var mdmRestoreCmd = &cobra.Command{
	Use:   "restore <backup-dir>",
	Short: "Copy records from a backup back into place (requires root)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		if err := mdm.Restore(commandContext(cmd), e.guard, e.root, args[0]); err != nil {
			return err
		}
		e.guard.Report().Render(e.out)
		return nil
	},
}

func init() {
	mdmCmd.AddCommand(mdmStatusCmd)
	mdmCmd.AddCommand(mdmListCmd)
	mdmCmd.AddCommand(mdmBackupCmd)
	mdmCmd.AddCommand(mdmRemoveCmd)
	mdmCmd.AddCommand(mdmRestoreCmd)
}

// backupRecords writes a fresh backup and returns its directory. In dry-run
// nothing is written and the directory is empty.
func backupRecords(e *env) (string, error) {
	records, err := mdm.ListRecords(mdmRoot)
	if err != nil {
		return "", err
	}
	if e.guard.Options().DryRun() {
		ui.DryRun(e.out, "would back up %d records to %s", len(records), e.cfg.MDM.BackupRoot)
		return "", nil
	}
	if err := os.MkdirAll(e.cfg.MDM.BackupRoot, 0o755); err != nil {
		return "", fmt.Errorf("mdm: backup root: %w", err)
	}
	dir, m, err := mdm.Backup(records, e.cfg.MDM.BackupRoot, time.Now())
	if err != nil {
		return "", err
	}
	ui.Success(e.out, "backed up %d records to %s", len(m.Entries), dir)
	ui.Info(e.out, "restore with: mm mdm restore %s (or sudo %s/%s)", dir, dir, mdm.RestoreScriptName)
	return dir, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
