package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/menu"
)

var (
	// Global flags
	debug      bool
	dryRun     bool
	assumeYes  bool
	configPath string

	// Version info populated from main
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets build-time version information.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
	rootCmd.Version = versionString()
}

func versionString() string {
	return fmt.Sprintf("%s (%s) built %s", appVersion, appCommit, appDate)
}

var rootCmd = &cobra.Command{
	Use:   "mm",
	Short: "Deep clean and tune your Mac",
	Long: `MacMole - Deep clean and tune your Mac.

Consolidates everyday macOS maintenance into one tool: disk cleanup,
Spotlight repair, MDM record backup and removal, boot diagnostics,
network and power tuning, and a Tailscale exit-node helper for OpenWrt.

Every destructive step honours --dry-run and -y/--yes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Assigned here: the menu dispatches back through rootCmd.
	rootCmd.RunE = runRoot
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("macmole {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&debug, "debug", false, "Show detailed operation logs")
	pf.BoolVar(&dryRun, "dry-run", false, "Show what would be done without changing anything")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every prompt")
	pf.StringVar(&configPath, "config", "", "Config file (default ~/.config/macmole/config.yaml)")

	// Register all subcommands
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(spotlightCmd)
	rootCmd.AddCommand(mdmCmd)
	rootCmd.AddCommand(bootdiagCmd)
	rootCmd.AddCommand(tuneCmd)
	rootCmd.AddCommand(exitnodeCmd)
	rootCmd.AddCommand(whitelistCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}

// runRoot shows the menu when invoked without subcommand on a terminal.
func runRoot(cmd *cobra.Command, args []string) error {
	if !isInteractive() {
		return cmd.Help()
	}
	return runInteractiveMenu(cmd)
}

// isInteractive is replaced in tests.
var isInteractive = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// ─── Interactive menu ────────────────────────────────────────────────────────

var menuItems = []menu.Item{
	{Title: "Preview cleanup", Description: "Show what clean would remove", Args: []string{"clean", "--dry-run"}},
	{Title: "Clean", Description: "Remove caches, logs and developer leftovers", Args: []string{"clean"}},
	{Title: "Spotlight status", Description: "Report the index state of the boot volume", Args: []string{"spotlight", "status"}},
	{Title: "Rebuild Spotlight", Description: "Erase and rebuild the index (root)", Args: []string{"spotlight", "rebuild"}},
	{Title: "MDM status", Description: "Show enrollment state", Args: []string{"mdm", "status"}},
	{Title: "Boot diagnostics", Description: "Disks, SIP and boot settings", Args: []string{"bootdiag"}},
	{Title: "Tuning", Description: "Compare network and power settings with the profile", Args: []string{"tune", "show"}},
	{Title: "Exit node check", Description: "Verify the Tailscale exit node on this router", Args: []string{"exitnode", "check"}},
	{Title: "Whitelist", Description: "List protected paths", Args: []string{"whitelist", "list"}},
}

// runInteractiveMenu launches the main menu and runs the chosen entry as if
// it had been typed on the command line.
func runInteractiveMenu(cmd *cobra.Command) error {
	header := "MacMole " + appVersion
	it, ok, err := menu.Run(header, menuItems, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil || !ok {
		return err
	}
	return runArgs(cmd.Context(), it.Args)
}

// runArgs dispatches args to the matching subcommand.
func runArgs(ctx context.Context, args []string) error {
	sub, rest, err := rootCmd.Find(args)
	if err != nil {
		return err
	}
	if err := sub.ParseFlags(rest); err != nil {
		return err
	}
	if sub.RunE == nil {
		return sub.Help()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sub.SetContext(ctx)
	return sub.RunE(sub, sub.Flags().Args())
}
