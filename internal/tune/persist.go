package tune

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

const (
	// DaemonLabel identifies the boot-time sysctl job.
	DaemonLabel = "com.macmole.sysctl"
	// DaemonPlistPath is where the job is installed.
	DaemonPlistPath = "/Library/LaunchDaemons/" + DaemonLabel + ".plist"

	sysctlPath = "/usr/sbin/sysctl"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
%s	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>StandardErrorPath</key>
	<string>/var/log/macmole-sysctl.log</string>
</dict>
</plist>
`

// Plist renders the LaunchDaemon that re-applies values at boot.
func Plist(values map[string]string) []byte {
	args := []string{sysctlPath, "-w"}
	for _, k := range keysOf(values) {
		args = append(args, k+"="+values[k])
	}

	var b strings.Builder
	for _, a := range args {
		b.WriteString("\t\t<string>")
		_ = xml.EscapeText(&b, []byte(a))
		b.WriteString("</string>\n")
	}
	return []byte(fmt.Sprintf(plistTemplate, DaemonLabel, b.String()))
}

// Persist installs the LaunchDaemon at plistPath and loads it. An already
// installed job is unloaded first so the new values take effect.
func Persist(ctx context.Context, g *harness.Guard, rc core.RootChecker, plistPath string, values map[string]string) error {
	if err := core.RequireRoot(rc, "installing the boot-time sysctl job"); err != nil {
		return err
	}
	if len(values) == 0 {
		return errors.New("tune: persist: network profile is empty")
	}
	out := g.Out()
	ui.Section(out, "Persisting network profile")

	if _, err := os.Stat(plistPath); err == nil {
		g.Run(ctx, "Unload previous job", true, "launchctl", "bootout", "system/"+DaemonLabel)
	}

	step := g.WriteFile(ctx, plistPath, Plist(values), 0o644, "LaunchDaemon plist", true)
	if step.Outcome != harness.Done && step.Outcome != harness.DryRun {
		return nil
	}
	g.Run(ctx, "Load job", true, "launchctl", "bootstrap", "system", plistPath)
	return nil
}

// Revert unloads and removes the LaunchDaemon. Values already applied stay
// in effect until the next reboot.
func Revert(ctx context.Context, g *harness.Guard, rc core.RootChecker, plistPath string) error {
	if err := core.RequireRoot(rc, "removing the boot-time sysctl job"); err != nil {
		return err
	}
	out := g.Out()
	ui.Section(out, "Reverting persisted network profile")

	if _, err := os.Stat(plistPath); errors.Is(err, fs.ErrNotExist) {
		ui.Info(out, "no persisted profile at %s", plistPath)
		return nil
	}
	g.Run(ctx, "Unload job", true, "launchctl", "bootout", "system/"+DaemonLabel)
	g.RemovePath(ctx, plistPath, "LaunchDaemon plist", true)
	ui.Info(out, "current values stay in effect until reboot")
	return nil
}
