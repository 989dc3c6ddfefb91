package exitnode

import (
	"bytes"
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/logger"
	"github.com/lakshaymaurya-felt/macmole/internal/runner/runnertest"
)

func newGuard(mode harness.Mode) (*harness.Guard, *runnertest.Fake, *bytes.Buffer) {
	fake := runnertest.New()
	var out bytes.Buffer
	g := harness.NewGuard(harness.Options{Mode: mode}, nil, nil, fake, &out, logger.Discard())
	return g, fake, &out
}

// ─── Install ─────────────────────────────────────────────────────────────────

func TestInstallPlan(t *testing.T) {
	plan := InstallPlan(InstallOptions{})
	require.NotEmpty(t, plan)
	assert.Equal(t, []string{"opkg", "update"}, plan[0].Args)
	assert.Equal(t, []string{"tailscale", "up", "--advertise-exit-node"}, plan[len(plan)-1].Args)

	var lines []string
	for _, c := range plan {
		lines = append(lines, strings.Join(c.Args, " "))
	}
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "net.ipv4.ip_forward=1")
	assert.Contains(t, joined, "net.ipv6.conf.all.forwarding=1")
	assert.Contains(t, joined, "uci set firewall.tailscale.masq=1")
	assert.Contains(t, joined, "uci commit firewall")
	assert.Contains(t, joined, "/etc/init.d/tailscale enable")

	withRoutes := InstallPlan(InstallOptions{AdvertiseRoutes: []string{"192.168.1.0/24", "10.0.0.0/8"}})
	last := withRoutes[len(withRoutes)-1].Args
	assert.Equal(t, "--advertise-routes=192.168.1.0/24,10.0.0.0/8", last[len(last)-1])
}

func TestInstall_RequiresOpenWrt(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	fake.Missing("opkg")
	err := Install(context.Background(), g, InstallOptions{})
	assert.ErrorIs(t, err, core.ErrPrecondition)
	assert.Empty(t, fake.Calls())
}

func TestInstall_RunsEveryStep(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	require.NoError(t, Install(context.Background(), g, InstallOptions{}))
	assert.Len(t, fake.Calls(), len(InstallPlan(InstallOptions{})))
	assert.Equal(t, "opkg update", fake.Calls()[0])
}

func TestInstall_DryRunRunsNothing(t *testing.T) {
	g, fake, out := newGuard(harness.ModeDryRun)
	require.NoError(t, Install(context.Background(), g, InstallOptions{}))
	assert.Empty(t, fake.Calls())
	assert.Contains(t, out.String(), "opkg install tailscale")
}

func TestInstall_CriticalFailureStops(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	fake.OnError("opkg install tailscale", 255, "Unknown package 'tailscale'.")

	err := Install(context.Background(), g, InstallOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Install tailscale")
	assert.Equal(t, []string{"opkg update", "opkg install tailscale"}, fake.Calls())
}

func TestInstall_NonCriticalFailureContinues(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	fake.OnError("/etc/init.d/firewall restart", 1, "")

	require.NoError(t, Install(context.Background(), g, InstallOptions{}))
	assert.True(t, fake.CalledPrefix("tailscale up"))
	assert.Len(t, g.Report().Failures(), 1)
}

// ─── Check ───────────────────────────────────────────────────────────────────

const statusJSON = `{"BackendState":"Running","Self":{"HostName":"openwrt","TailscaleIPs":["100.64.0.1"],"ExitNodeOption":true}}`

func healthyFake() *runnertest.Fake {
	return runnertest.New().
		On("tailscale status --json", statusJSON).
		On("sysctl -n net.ipv4.ip_forward", "1\n").
		On("uci -q get firewall.tailscale.name", "tailscale\n").
		On("tailscale debug prefs", `{"AdvertiseRoutes":["0.0.0.0/0","::/0"]}`)
}

func TestParseStatus(t *testing.T) {
	backend, exit, err := ParseStatus(statusJSON)
	require.NoError(t, err)
	assert.Equal(t, "Running", backend)
	assert.True(t, exit)

	_, _, err = ParseStatus("not json")
	assert.Error(t, err)
}

func TestCheck_Healthy(t *testing.T) {
	checks := Run(context.Background(), healthyFake())
	require.Len(t, checks, 5)
	assert.True(t, Healthy(checks))

	var out bytes.Buffer
	Render(&out, checks)
	assert.Contains(t, out.String(), "exit node advertised")
}

func TestCheck_NotInstalled(t *testing.T) {
	checks := Run(context.Background(), runnertest.New().Missing("tailscale"))
	require.Len(t, checks, 1)
	assert.False(t, Healthy(checks))
}

func TestCheck_Failures(t *testing.T) {
	fake := runnertest.New().
		On("tailscale status --json", `{"BackendState":"NeedsLogin","Self":{}}`).
		On("sysctl -n net.ipv4.ip_forward", "0").
		OnError("uci -q get firewall.tailscale.name", 1, "").
		On("tailscale debug prefs", `{"AdvertiseRoutes":null}`)

	checks := Run(context.Background(), fake)
	assert.False(t, Healthy(checks))
	byName := map[string]Check{}
	for _, c := range checks {
		byName[c.Name] = c
	}
	assert.True(t, byName["tailscale installed"].OK)
	assert.False(t, byName["tailscaled running"].OK)
	assert.Contains(t, byName["tailscaled running"].Detail, "NeedsLogin")
	assert.False(t, byName["IPv4 forwarding"].OK)
	assert.False(t, byName["firewall zone"].OK)
	assert.False(t, byName["exit node advertised"].OK)
}

func TestCheck_AdvertisedAwaitingApproval(t *testing.T) {
	fake := healthyFake().On("tailscale status --json", `{"BackendState":"Running","Self":{"ExitNodeOption":false}}`)
	checks := Run(context.Background(), fake)
	last := checks[len(checks)-1]
	assert.True(t, last.OK)
	assert.Equal(t, "advertised, awaiting approval", last.Detail)
}

func TestHealthy_Empty(t *testing.T) {
	assert.False(t, Healthy(nil))
}

// ─── Routes ──────────────────────────────────────────────────────────────────

func TestParseIPRoutes(t *testing.T) {
	out := "192.168.1.0/24 proto kernel src 192.168.1.1\n" +
		"10.10.0.0/16 proto static\n" +
		"192.168.1.0/24 proto kernel src 192.168.1.1\n" +
		"default via 192.168.1.254\n" +
		"192.168.1.7 proto static\n" +
		"192.168.1.9/32 proto static\n"

	got := ParseIPRoutes(out)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.10.0.0/16"),
		netip.MustParsePrefix("192.168.1.0/24"),
	}, got)
	assert.Equal(t, "10.10.0.0/16,192.168.1.0/24", FormatRoutes(got))
}

func TestDiscoverRoutes_Remote(t *testing.T) {
	fake := runnertest.New().On("ip -4 route show dev br-lan scope link", "192.168.8.0/24 proto kernel src 192.168.8.1\n")
	got, err := DiscoverRoutes(context.Background(), fake, "br-lan", false)
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("192.168.8.0/24")}, got)
}

func TestDiscoverRoutes_LocalPrefersNetlink(t *testing.T) {
	orig := localRoutes
	t.Cleanup(func() { localRoutes = orig })

	localRoutes = func(iface string) ([]netip.Prefix, error) {
		assert.Equal(t, "br-lan", iface)
		return []netip.Prefix{netip.MustParsePrefix("192.168.1.0/24")}, nil
	}
	fake := runnertest.New()
	got, err := DiscoverRoutes(context.Background(), fake, "br-lan", true)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Empty(t, fake.Calls())

	localRoutes = func(string) ([]netip.Prefix, error) { return nil, errors.New("no such link") }
	fake.On("ip -4 route show dev br-lan scope link", "10.0.0.0/24 proto kernel\n")
	got, err = DiscoverRoutes(context.Background(), fake, "br-lan", true)
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.0/24")}, got)
}

func TestDiscoverRoutes_CommandFails(t *testing.T) {
	fake := runnertest.New().OnError("ip -4 route show dev eth9 scope link", 1, "Cannot find device")
	_, err := DiscoverRoutes(context.Background(), fake, "eth9", false)
	assert.Error(t, err)
}

func TestApplyRoutes(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	prefixes := []netip.Prefix{netip.MustParsePrefix("192.168.1.0/24")}
	require.NoError(t, ApplyRoutes(context.Background(), g, prefixes))
	assert.Equal(t, []string{"tailscale set --advertise-routes=192.168.1.0/24"}, fake.Calls())

	assert.Error(t, ApplyRoutes(context.Background(), g, nil))

	g2, fake2, _ := newGuard(harness.ModeAssumeYes)
	fake2.OnError("tailscale set --advertise-routes=192.168.1.0/24", 1, "")
	assert.Error(t, ApplyRoutes(context.Background(), g2, prefixes))
}
