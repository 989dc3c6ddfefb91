package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/macmole/internal/config"
	"github.com/lakshaymaurya-felt/macmole/internal/exitnode"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
	"github.com/lakshaymaurya-felt/macmole/internal/ui"
)

// sshPasswordEnv holds the router password when no key file is used.
const sshPasswordEnv = "MACMOLE_SSH_PASSWORD"

var errExitNodeUnhealthy = errors.New("exitnode: one or more checks failed")

var (
	exitHost       string
	exitPort       int
	exitUser       string
	exitKey        string
	exitKnownHosts string
	exitInsecure   bool
	exitLocal      bool
	exitLAN        string
	exitRoutes     []string
	exitApply      bool
)

// dialRemote connects to the router. Replaced in tests.
var dialRemote = func(cfg runner.SSHConfig) (runner.Runner, func(), error) {
	s, err := runner.DialSSH(cfg)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

var exitnodeCmd = &cobra.Command{
	Use:   "exitnode",
	Short: "Set up an OpenWrt router as a Tailscale exit node",
	Long: `Installs and checks a Tailscale exit node on an OpenWrt router.

Commands run locally when no host is configured (or with --local), and over
SSH otherwise. Set ` + sshPasswordEnv + ` to log in with a password.`,
}

var exitnodeInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install tailscale, enable forwarding and the firewall zone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeFn, _, err := exitnodeEnv(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		routes := exitRoutes
		if len(routes) == 0 {
			routes = e.cfg.ExitNode.AdvertiseRoutes
		}
		if err := exitnode.Install(commandContext(cmd), e.guard, exitnode.InstallOptions{AdvertiseRoutes: routes}); err != nil {
			return err
		}
		e.guard.Report().Render(e.out)
		return nil
	},
}

var exitnodeCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the exit node (read-only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeFn, _, err := exitnodeEnv(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		checks := exitnode.Run(commandContext(cmd), e.runner)
		exitnode.Render(e.out, checks)
		if !exitnode.Healthy(checks) {
			return errExitNodeUnhealthy
		}
		return nil
	},
}

var exitnodeRoutesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Discover LAN subnets and optionally advertise them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeFn, local, err := exitnodeEnv(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		iface := exitLAN
		if iface == "" {
			iface = e.cfg.ExitNode.LANInterface
		}
		ctx := commandContext(cmd)
		prefixes, err := exitnode.DiscoverRoutes(ctx, e.runner, iface, local)
		if err != nil {
			return err
		}
		if len(prefixes) == 0 {
			ui.Warning(e.out, "no link routes on %s", iface)
			return nil
		}
		ui.Section(e.out, "LAN routes on "+iface)
		for _, p := range prefixes {
			ui.Info(e.out, "%s", p)
		}
		if !exitApply {
			ui.Info(e.out, "advertise with: mm exitnode routes --apply")
			return nil
		}
		return exitnode.ApplyRoutes(ctx, e.guard, prefixes)
	},
}

func init() {
	pf := exitnodeCmd.PersistentFlags()
	pf.StringVar(&exitHost, "host", "", "Router address (default from config; empty means local)")
	pf.IntVar(&exitPort, "port", 0, "SSH port")
	pf.StringVar(&exitUser, "user", "", "SSH user")
	pf.StringVar(&exitKey, "key", "", "SSH private key file")
	pf.StringVar(&exitKnownHosts, "known-hosts", "", "known_hosts file for host key verification")
	pf.BoolVar(&exitInsecure, "insecure-host-key", false, "Skip host key verification")
	pf.BoolVar(&exitLocal, "local", false, "Run on this machine even if a host is configured")

	exitnodeInstallCmd.Flags().StringSliceVar(&exitRoutes, "routes", nil, "LAN subnets to advertise (CIDR, comma separated)")
	exitnodeRoutesCmd.Flags().StringVar(&exitLAN, "lan", "", "LAN interface (default from config)")
	exitnodeRoutesCmd.Flags().BoolVar(&exitApply, "apply", false, "Advertise the discovered routes")

	exitnodeCmd.AddCommand(exitnodeInstallCmd)
	exitnodeCmd.AddCommand(exitnodeCheckCmd)
	exitnodeCmd.AddCommand(exitnodeRoutesCmd)
}

// exitnodeSSHConfig merges flags over the config file.
func exitnodeSSHConfig(cfg config.ExitNodeConfig) runner.SSHConfig {
	sc := runner.SSHConfig{
		Host:                  cfg.Host,
		Port:                  cfg.Port,
		User:                  cfg.User,
		KeyFile:               cfg.KeyFile,
		KnownHosts:            cfg.KnownHosts,
		InsecureIgnoreHostKey: exitInsecure,
		Password:              os.Getenv(sshPasswordEnv),
	}
	if exitHost != "" {
		sc.Host = exitHost
	}
	if exitPort != 0 {
		sc.Port = exitPort
	}
	if exitUser != "" {
		sc.User = exitUser
	}
	if exitKey != "" {
		sc.KeyFile = exitKey
	}
	if exitKnownHosts != "" {
		sc.KnownHosts = exitKnownHosts
	}
	return sc
}

// exitnodeEnv builds an env whose runner targets the router. local reports
// whether commands run on this machine.
func exitnodeEnv(cmd *cobra.Command) (e *env, closeFn func(), local bool, err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, false, err
	}
	sc := exitnodeSSHConfig(cfg.ExitNode)

	r := newLocalRunner()
	closeFn = func() {}
	local = exitLocal || sc.Host == ""
	if !local {
		r, closeFn, err = dialRemote(sc)
		if err != nil {
			return nil, nil, false, fmt.Errorf("exitnode: connect %s: %w", sc.Host, err)
		}
	}

	e, err = newEnvWithRunner(cmd, false, r)
	if err != nil {
		closeFn()
		return nil, nil, false, err
	}
	target := "local"
	if !local {
		target = sc.User + "@" + sc.Host
	}
	e.logger.Debug("exit node target", "target", target)
	return e, closeFn, local, nil
}
