package bootdiag

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// Report is the collected diagnostics.
type Report struct {
	MacOSVersion string
	SIP          core.SIPState
	Disks        []Disk
	BootVolume   string
	BootArgs     string
	Disk         *core.DiskUsage
	// Notes holds best-effort probes that failed.
	Notes []string
}

// Usable returns the usable partitions found.
func (r *Report) Usable() []Partition {
	return UsablePartitions(r.Disks)
}

// Gather runs every probe. Only a failing `diskutil list` is an error;
// the other probes degrade to notes.
func Gather(ctx context.Context, r runner.Runner, diskPath string) (*Report, error) {
	rep := &Report{MacOSVersion: core.MacOSVersion()}

	out, err := runner.Output(ctx, r, "diskutil", "list")
	if err != nil {
		return nil, fmt.Errorf("bootdiag: diskutil list: %w", err)
	}
	rep.Disks = ParseDiskutilList(out)

	if sip, err := core.SIPStatus(ctx, r); err == nil {
		rep.SIP = sip
	} else {
		rep.Notes = append(rep.Notes, "SIP status unavailable: "+err.Error())
	}

	if boot, err := runner.Output(ctx, r, "bless", "--info", "--getBoot"); err == nil {
		rep.BootVolume = boot
	} else {
		rep.Notes = append(rep.Notes, "boot volume unavailable: "+err.Error())
	}

	// nvram exits non-zero when boot-args is unset; that is the normal case.
	if args, err := runner.Output(ctx, r, "nvram", "boot-args"); err == nil {
		rep.BootArgs = ParseBootArgs(args)
	}

	if u, err := core.FreeSpace(diskPath); err == nil {
		rep.Disk = &u
	} else {
		rep.Notes = append(rep.Notes, "free space unavailable: "+err.Error())
	}
	return rep, nil
}

// ParseBootArgs extracts the value from `nvram boot-args` ("boot-args\t-v").
func ParseBootArgs(out string) string {
	out = strings.TrimSpace(out)
	if v, ok := strings.CutPrefix(out, "boot-args"); ok {
		return strings.TrimSpace(v)
	}
	return out
}

// Render prints the report.
func Render(w io.Writer, rep *Report) {
	fmt.Fprintln(w, ui.TitleStyle.Render("Boot diagnostics"))

	version := "unknown"
	if rep.MacOSVersion != "" {
		version = core.MacOSVersionString(rep.MacOSVersion)
	}
	bootArgs := rep.BootArgs
	if bootArgs == "" {
		bootArgs = "(none)"
	}
	bootVol := rep.BootVolume
	if bootVol == "" {
		bootVol = "(unknown)"
	}
	ui.KeyValue(w, [][2]string{
		{"System", version},
		{"SIP", rep.SIP.String()},
		{"Boot volume", bootVol},
		{"Boot args", bootArgs},
	})

	if rep.Disk != nil {
		fmt.Fprintf(w, "  %s  %s  %5.1f%%  %s free of %s\n",
			ui.MutedStyle.Render("Disk"),
			ui.UsageBar(rep.Disk.UsedPercent, 30), rep.Disk.UsedPercent,
			core.FormatSize(int64(rep.Disk.Free)), core.FormatSize(int64(rep.Disk.Total)))
	}

	for _, d := range rep.Disks {
		ui.Section(w, fmt.Sprintf("%s (%s)", d.Device, d.Info))
		for _, p := range d.Partitions {
			line := fmt.Sprintf("%-10s %-22s %-24s %s", p.Identifier, p.Type, p.Name, p.Size)
			if p.Usable() {
				ui.Success(w, "%s", line)
			} else {
				ui.Info(w, "%s", line)
			}
		}
	}

	usable := rep.Usable()
	fmt.Fprintln(w)
	if len(usable) == 0 {
		ui.Error(w, "no usable disk found")
	} else {
		ui.Success(w, "%d usable volumes", len(usable))
	}
	for _, n := range rep.Notes {
		ui.Warning(w, "%s", n)
	}
}
