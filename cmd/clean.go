package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/clean"
	"github.com/lakshaymaurya-felt/macmole/internal/config"
	"github.com/lakshaymaurya-felt/macmole/internal/logger"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
	"github.com/lakshaymaurya-felt/macmole/internal/whitelist"
)

var (
	cleanAggressive bool
	cleanUser       bool
	cleanSystem     bool
	cleanBrowser    bool
	cleanDev        bool
	cleanAll        bool
	cleanVolumes    bool
	cleanVerify     bool
	cleanList       bool
)

// Overridable locations for tests.
var (
	cleanHome       = clean.HomeDir
	cleanVolumesDir = clean.DefaultVolumesDir
	cleanDiskPath   = "/"
	whitelistDir    = config.Dir
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Free up disk space",
	Long: `Deep cleanup of caches, logs, browser data and developer leftovers.

Without category flags every category is cleaned. System targets need root
and are skipped with a warning otherwise; passing --system without root is
an error. Refuses to run while a Time Machine backup is in progress.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	f := cleanCmd.Flags()
	f.BoolVar(&cleanAggressive, "aggressive", false, "Include high-impact targets (Xcode archives, iOS backups, snapshots)")
	f.BoolVar(&cleanUser, "user", false, "Clean user caches, logs and Trash")
	f.BoolVar(&cleanSystem, "system", false, "Clean system caches and logs (requires root)")
	f.BoolVar(&cleanBrowser, "browser", false, "Clean browser caches")
	f.BoolVar(&cleanDev, "dev", false, "Clean developer tool caches")
	f.BoolVar(&cleanAll, "all", false, "Clean every category, including external volumes")
	f.BoolVar(&cleanVolumes, "volumes", false, "Remove Finder junk from external volumes")
	f.BoolVar(&cleanVerify, "verify", false, "With --dry-run, prove nothing on disk changed")
	f.BoolVar(&cleanList, "list", false, "List the built-in targets by category and exit")
}

// listTargets prints the target table grouped by category.
func listTargets(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	home := cleanHome()
	for _, cat := range []string{config.CategoryUser, config.CategoryBrowser, config.CategoryDev, config.CategorySystem} {
		ui.Section(out, cat)
		for _, t := range config.GetTargetsByCategory(home, cat) {
			var flags []string
			if t.RequiresAdmin {
				flags = append(flags, "root")
			}
			if t.Aggressive {
				flags = append(flags, "aggressive")
			}
			line := fmt.Sprintf("  %-22s %-6s %s", t.Name, t.RiskLevel, t.Description)
			if len(flags) > 0 {
				line += " (" + strings.Join(flags, ", ") + ")"
			}
			fmt.Fprintln(out, line)
		}
	}
}

func cleanRequest() clean.Request {
	req := clean.Request{
		SystemRequested: cleanSystem,
		Volumes:         cleanVolumes || cleanAll,
		Verify:          cleanVerify,
	}
	if cleanAll {
		return req
	}
	for _, c := range []struct {
		set bool
		cat string
	}{
		{cleanUser, config.CategoryUser},
		{cleanSystem, config.CategorySystem},
		{cleanBrowser, config.CategoryBrowser},
		{cleanDev, config.CategoryDev},
	} {
		if c.set {
			req.Categories = append(req.Categories, c.cat)
		}
	}
	return req
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanList {
		listTargets(cmd)
		return nil
	}
	e, err := newEnv(cmd, cleanAggressive)
	if err != nil {
		return err
	}
	wl, err := whitelist.Load(whitelistDir())
	if err != nil {
		return err
	}

	c := &clean.Cleaner{
		Guard:      e.guard,
		Config:     e.cfg,
		Whitelist:  wl,
		Root:       e.root,
		Logger:     logger.WithComponent(e.logger, "clean"),
		Home:       cleanHome(),
		VolumesDir: cleanVolumesDir,
		DiskPath:   cleanDiskPath,
	}
	summary, err := c.Run(commandContext(cmd), cleanRequest())
	if summary != nil {
		clean.RenderSummary(e.out, summary)
	}
	return err
}
