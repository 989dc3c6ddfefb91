package mdm

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// Remove deletes the listed records and then asks profiles(1) to drop every
// installed profile. Preconditions, all fatal: root, SIP disabled, and a
// readable backup in backupDir. In dry-run the backup is not required since
// nothing is removed.
func Remove(ctx context.Context, g *harness.Guard, rc core.RootChecker, backupDir string, records []Record) error {
	if err := CheckRemovable(ctx, g.Runner(), rc); err != nil {
		return err
	}

	if !g.Options().DryRun() {
		m, err := LoadManifest(backupDir)
		if err != nil {
			return core.Preconditionf("refusing to remove records without a backup: %v", err)
		}
		if len(m.Entries) != len(records) {
			return core.Preconditionf("backup %s holds %d records, expected %d", backupDir, len(m.Entries), len(records))
		}
	}

	out := g.Out()
	ui.Section(out, fmt.Sprintf("Removing %d MDM records", len(records)))
	if backupDir != "" {
		ui.Info(out, "backup: %s", backupDir)
	}

	for _, r := range records {
		g.RemovePath(ctx, r.Path, "MDM record "+filepath.Base(r.Path), true)
	}
	g.Run(ctx, "Remove installed profiles", true, "profiles", "remove", "-all", "-forced")
	return nil
}

// CheckRemovable verifies the fatal preconditions for removal: root and
// SIP disabled. Callers run it before writing a backup.
func CheckRemovable(ctx context.Context, r runner.Runner, rc core.RootChecker) error {
	if err := core.RequireRoot(rc, "removing MDM records"); err != nil {
		return err
	}
	sip, err := core.SIPStatus(ctx, r)
	if err != nil {
		return core.Preconditionf("cannot determine SIP status: %v", err)
	}
	if sip != core.SIPDisabled {
		return core.Preconditionf("System Integrity Protection is %s; disable it from Recovery first", sip)
	}
	return nil
}

// Restore copies every entry of the backup in backupDir back into place.
func Restore(ctx context.Context, g *harness.Guard, rc core.RootChecker, backupDir string) error {
	if err := core.RequireRoot(rc, "restoring MDM records"); err != nil {
		return err
	}
	m, err := LoadManifest(backupDir)
	if err != nil {
		return core.Preconditionf("%v", err)
	}

	out := g.Out()
	ui.Section(out, fmt.Sprintf("Restoring %d MDM records from %s", len(m.Entries), backupDir))
	if !g.Confirm(fmt.Sprintf("Restore %d records created %s?", len(m.Entries), m.Created.Format("2006-01-02 15:04")), true) {
		ui.Skipped(out, "restore cancelled")
		return nil
	}

	for _, e := range m.Entries {
		src := filepath.Join(backupDir, filesDir, e.Rel)
		dst := e.Path
		mode := e.Mode
		g.Do(ctx, harness.Action{
			Label:   "Restore " + filepath.Base(dst),
			Target:  dst,
			Default: true,
			Size:    e.Size,
			Apply: func(context.Context) (int64, error) {
				return 0, copyFile(src, dst, mode)
			},
		})
	}
	return nil
}
