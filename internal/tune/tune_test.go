package tune

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/logger"
	"github.com/lakshaymaurya-felt/macmole/internal/runner/runnertest"
)

type fakeRoot bool

func (f fakeRoot) IsRoot() bool { return bool(f) }

func TestMain(m *testing.M) {
	nativeSysctl = func(string) (string, bool) { return "", false }
	os.Exit(m.Run())
}

const pmsetCustom = `Battery Power:
 lidwake              1
 standby              1
 hibernatemode        3
 powernap             0
 displaysleep         2
 sleep                1
AC Power:
 lidwake              1
 standby              1
 hibernatemode        3
 powernap             1
 displaysleep         10
 sleep                30
`

func newGuard(mode harness.Mode) (*harness.Guard, *runnertest.Fake, *bytes.Buffer) {
	fake := runnertest.New()
	var out bytes.Buffer
	g := harness.NewGuard(harness.Options{Mode: mode}, nil, nil, fake, &out, logger.Discard())
	return g, fake, &out
}

func TestCompare(t *testing.T) {
	got := Compare(
		map[string]string{"a": "1", "b": "2"},
		map[string]string{"b": "3", "a": "1", "c": "9"},
	)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Key)
	assert.False(t, got[0].Differs())
	assert.True(t, got[1].Differs())
	assert.False(t, got[2].Supported)
	assert.False(t, got[2].Differs())

	changes := Changes(got)
	require.Len(t, changes, 1)
	assert.Equal(t, "b", changes[0].Key)
}

func TestParsePmsetCustom(t *testing.T) {
	sections := ParsePmsetCustom(pmsetCustom)
	require.Len(t, sections, 2)
	assert.Equal(t, "2", sections["Battery Power"]["displaysleep"])
	assert.Equal(t, "30", sections["AC Power"]["sleep"])

	assert.Equal(t, "1", effectivePower(sections)["powernap"])
	assert.Equal(t, "2", effectivePower(map[string]map[string]string{
		"Battery Power": {"displaysleep": "2"},
	})["displaysleep"])
	assert.Empty(t, effectivePower(nil))
}

func TestReadSysctls_SkipsUnreadable(t *testing.T) {
	fake := runnertest.New().
		On("sysctl -n net.inet.tcp.mssdflt", "512\n").
		OnError("sysctl -n net.inet.tcp.win_scale_factor", 1, "unknown oid")

	got := ReadSysctls(context.Background(), fake, []string{"net.inet.tcp.mssdflt", "net.inet.tcp.win_scale_factor"})
	assert.Equal(t, map[string]string{"net.inet.tcp.mssdflt": "512"}, got)
}

func TestShow(t *testing.T) {
	fake := runnertest.New().
		On("sysctl -n net.inet.tcp.mssdflt", "512").
		On("pmset -g custom", pmsetCustom)

	st := Read(context.Background(), fake,
		map[string]string{"net.inet.tcp.mssdflt": "1440", "net.inet.tcp.delayed_ack": "0"},
		map[string]string{"sleep": "30", "powernap": "0"})

	var out bytes.Buffer
	Show(&out, st)
	text := out.String()
	assert.Contains(t, text, "512 -> 1440")
	assert.Contains(t, text, "unsupported")
	assert.Contains(t, text, "1 -> 0")
	assert.Contains(t, text, "2 settings differ")
}

func TestApplyNetwork_RequiresRoot(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	err := ApplyNetwork(context.Background(), g, fakeRoot(false), map[string]string{"x": "1"})
	assert.ErrorIs(t, err, core.ErrPrecondition)
	assert.Empty(t, fake.Calls())
}

func TestApplyNetwork_OnlyChangesDiffering(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	fake.On("sysctl -n net.inet.tcp.mssdflt", "512").
		On("sysctl -n net.inet.tcp.delayed_ack", "0")

	err := ApplyNetwork(context.Background(), g, fakeRoot(true), map[string]string{
		"net.inet.tcp.mssdflt":     "1440",
		"net.inet.tcp.delayed_ack": "0",
		"net.inet.tcp.bogus":       "1",
	})
	require.NoError(t, err)

	assert.True(t, fake.Called("sysctl -w net.inet.tcp.mssdflt=1440"))
	assert.False(t, fake.CalledPrefix("sysctl -w net.inet.tcp.delayed_ack"))
	assert.False(t, fake.CalledPrefix("sysctl -w net.inet.tcp.bogus"))
	assert.Equal(t, 1, g.Report().Count(harness.Done))
	assert.Equal(t, 1, g.Report().Count(harness.Skipped))
}

func TestApplyNetwork_DryRunRunsOnlyProbes(t *testing.T) {
	g, fake, out := newGuard(harness.ModeDryRun)
	fake.On("sysctl -n net.inet.tcp.mssdflt", "512")

	require.NoError(t, ApplyNetwork(context.Background(), g, fakeRoot(true), map[string]string{"net.inet.tcp.mssdflt": "1440"}))
	for _, c := range fake.Calls() {
		assert.True(t, strings.HasPrefix(c, "sysctl -n "), c)
	}
	assert.Contains(t, out.String(), "sysctl -w net.inet.tcp.mssdflt=1440")
}

func TestApplyPower(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	fake.On("pmset -g custom", pmsetCustom)

	err := ApplyPower(context.Background(), g, fakeRoot(true), map[string]string{
		"sleep":        "30",
		"powernap":     "0",
		"tcpkeepalive": "1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"pmset -g custom",
		"pmset -a powernap 0",
		"pmset -a tcpkeepalive 1",
	}, fake.Calls())
}

func TestApplyPower_ReadFailureIsFatal(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes)
	fake.OnError("pmset -g custom", 1, "")
	err := ApplyPower(context.Background(), g, fakeRoot(true), map[string]string{"sleep": "30"})
	assert.Error(t, err)
}

func TestPlist(t *testing.T) {
	data := string(Plist(map[string]string{"net.inet.tcp.mssdflt": "1440", "kern.ipc.maxsockbuf": "8388608"}))
	assert.Contains(t, data, "<string>"+DaemonLabel+"</string>")
	assert.Contains(t, data, "<string>/usr/sbin/sysctl</string>")
	// Sorted so the file is stable across runs.
	assert.Less(t, strings.Index(data, "kern.ipc.maxsockbuf=8388608"), strings.Index(data, "net.inet.tcp.mssdflt=1440"))
	assert.Contains(t, data, "<key>RunAtLoad</key>")

	escaped := string(Plist(map[string]string{"a<b": "1&2"}))
	assert.Contains(t, escaped, "a&lt;b=1&amp;2")
}

func TestPersist(t *testing.T) {
	plist := filepath.Join(t.TempDir(), "LaunchDaemons", DaemonLabel+".plist")
	g, fake, _ := newGuard(harness.ModeAssumeYes)

	require.NoError(t, Persist(context.Background(), g, fakeRoot(true), plist, map[string]string{"net.inet.tcp.mssdflt": "1440"}))
	data, err := os.ReadFile(plist)
	require.NoError(t, err)
	assert.Contains(t, string(data), "net.inet.tcp.mssdflt=1440")
	assert.Equal(t, []string{"launchctl bootstrap system " + plist}, fake.Calls())

	// A second persist reloads the job.
	require.NoError(t, Persist(context.Background(), g, fakeRoot(true), plist, map[string]string{"net.inet.tcp.mssdflt": "1400"}))
	calls := fake.Calls()
	assert.Equal(t, "launchctl bootout system/"+DaemonLabel, calls[1])
}

func TestPersist_DryRunWritesNothing(t *testing.T) {
	plist := filepath.Join(t.TempDir(), DaemonLabel+".plist")
	g, fake, out := newGuard(harness.ModeDryRun)

	require.NoError(t, Persist(context.Background(), g, fakeRoot(true), plist, map[string]string{"a": "1"}))
	assert.NoFileExists(t, plist)
	assert.Empty(t, fake.Calls())
	assert.Contains(t, out.String(), "launchctl bootstrap system")
}

func TestPersist_RequiresRootAndValues(t *testing.T) {
	g, _, _ := newGuard(harness.ModeAssumeYes)
	assert.ErrorIs(t, Persist(context.Background(), g, fakeRoot(false), "/x", map[string]string{"a": "1"}), core.ErrPrecondition)
	assert.Error(t, Persist(context.Background(), g, fakeRoot(true), "/x", nil))
}

func TestRevert(t *testing.T) {
	plist := filepath.Join(t.TempDir(), DaemonLabel+".plist")
	require.NoError(t, os.WriteFile(plist, Plist(map[string]string{"a": "1"}), 0o644))

	g, fake, _ := newGuard(harness.ModeAssumeYes)
	require.NoError(t, Revert(context.Background(), g, fakeRoot(true), plist))
	assert.NoFileExists(t, plist)
	assert.Equal(t, []string{"launchctl bootout system/" + DaemonLabel}, fake.Calls())
}

func TestRevert_NothingInstalled(t *testing.T) {
	g, fake, out := newGuard(harness.ModeAssumeYes)
	require.NoError(t, Revert(context.Background(), g, fakeRoot(true), filepath.Join(t.TempDir(), "none.plist")))
	assert.Empty(t, fake.Calls())
	assert.Contains(t, out.String(), "no persisted profile")
}
