package mdm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/harness"
	"github.com/lakshaymaurya-felt/macmole/internal/logger"
	"github.com/lakshaymaurya-felt/macmole/internal/runner/runnertest"
	"github.com/lakshaymaurya-felt/macmole/internal/snapshot"
)

type fakeRoot bool

func (f fakeRoot) IsRoot() bool { return bool(f) }

const sipDisabled = "System Integrity Protection status: disabled.\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fakeSystem lays out MDM records under a sandbox root.
func fakeSystem(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	cp := filepath.Join(root, "var", "db", "ConfigurationProfiles")
	writeFile(t, filepath.Join(cp, "Settings", ".cloudConfigHasActivationRecord"), "a")
	writeFile(t, filepath.Join(cp, "Settings", ".cloudConfigRecordFound"), "bb")
	writeFile(t, filepath.Join(cp, "Settings", "unrelated"), "x")
	writeFile(t, filepath.Join(cp, "Store", "ConfigProfiles.plist"), "<plist/>")
	writeFile(t, filepath.Join(cp, "Setup", ".profileSetupDone"), "")
	writeFile(t, filepath.Join(root, "Library", "Managed Preferences", "com.apple.SoftwareUpdate.plist"), "<plist/>")
	return root
}

func newGuard(mode harness.Mode) (*harness.Guard, *runnertest.Fake, *bytes.Buffer) {
	fake := runnertest.New()
	var out bytes.Buffer
	return harness.NewGuard(harness.Options{Mode: mode}, nil, nil, fake, &out, logger.Discard()), fake, &out
}

func TestParseEnrollment(t *testing.T) {
	out := "Enrolled via DEP: Yes\nMDM enrollment: Yes (User Approved)\nMDM server: https://mdm.example.com/mdm\n"
	e := ParseEnrollment(out)
	assert.True(t, e.DEP)
	assert.True(t, e.Enrolled)
	assert.True(t, e.UserApproved)
	assert.Equal(t, "https://mdm.example.com/mdm", e.Server)

	none := ParseEnrollment("Enrolled via DEP: No\nMDM enrollment: No\n")
	assert.Equal(t, Enrollment{}, none)
}

func stubVersion(t *testing.T, v string) {
	t.Helper()
	orig := macOSVersion
	macOSVersion = func() string { return v }
	t.Cleanup(func() { macOSVersion = orig })
}

func TestStatus(t *testing.T) {
	stubVersion(t, "14.5")
	fake := runnertest.New().On("profiles status -type enrollment", "MDM enrollment: Yes\n")
	e, err := Status(context.Background(), fake)
	require.NoError(t, err)
	assert.True(t, e.Enrolled)
	assert.False(t, e.UserApproved)
}

func TestStatus_OldMacOS(t *testing.T) {
	stubVersion(t, "10.12.6")
	fake := runnertest.New()
	_, err := Status(context.Background(), fake)
	var pe *core.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, fake.Calls())
}

func TestListRecords(t *testing.T) {
	root := fakeSystem(t)
	records, err := ListRecords(root)
	require.NoError(t, err)

	var rels []string
	for _, r := range records {
		rels = append(rels, r.Rel)
	}
	assert.ElementsMatch(t, []string{
		"var/db/ConfigurationProfiles/Settings/.cloudConfigHasActivationRecord",
		"var/db/ConfigurationProfiles/Settings/.cloudConfigRecordFound",
		"var/db/ConfigurationProfiles/Store/ConfigProfiles.plist",
		"var/db/ConfigurationProfiles/Setup/.profileSetupDone",
		"Library/Managed Preferences/com.apple.SoftwareUpdate.plist",
	}, rels)

	empty, err := ListRecords(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBackupAndManifest(t *testing.T) {
	root := fakeSystem(t)
	records, err := ListRecords(root)
	require.NoError(t, err)

	backupRoot := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	dir, m, err := Backup(records, backupRoot, now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(dir), "mdm-backup-20260301-123000-"))
	assert.Len(t, filepath.Base(dir), len("mdm-backup-20260301-123000-")+8)
	assert.Len(t, m.Entries, len(records))

	loaded, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.Equal(t, records[0].Path, loaded.Entries[0].Path)

	copied, err := os.ReadFile(filepath.Join(dir, filesDir, "var/db/ConfigurationProfiles/Settings/.cloudConfigRecordFound"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(copied))

	info, err := os.Stat(filepath.Join(dir, RestoreScriptName))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100, "restore.sh must be executable")
	script, err := os.ReadFile(filepath.Join(dir, RestoreScriptName))
	require.NoError(t, err)
	assert.Contains(t, string(script), "cp -p")
	assert.Contains(t, string(script), "'"+filepath.Join(root, "Library", "Managed Preferences"))
}

func TestLoadManifest_Missing(t *testing.T) {
	_, err := LoadManifest(t.TempDir())
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestRemove_Preconditions(t *testing.T) {
	root := fakeSystem(t)
	records, err := ListRecords(root)
	require.NoError(t, err)
	before, err := snapshot.Tree(root)
	require.NoError(t, err)

	t.Run("not root", func(t *testing.T) {
		g, fake, _ := newGuard(harness.ModeAssumeYes)
		err := Remove(context.Background(), g, fakeRoot(false), "", records)
		assert.ErrorIs(t, err, core.ErrPrecondition)
		assert.Empty(t, fake.Calls())
	})

	t.Run("SIP enabled", func(t *testing.T) {
		g, fake, _ := newGuard(harness.ModeAssumeYes)
		fake.On("csrutil status", "System Integrity Protection status: enabled.\n")
		err := Remove(context.Background(), g, fakeRoot(true), "", records)
		assert.ErrorIs(t, err, core.ErrPrecondition)
		assert.Contains(t, err.Error(), "enabled")
	})

	t.Run("no backup", func(t *testing.T) {
		g, fake, _ := newGuard(harness.ModeAssumeYes)
		fake.On("csrutil status", sipDisabled)
		err := Remove(context.Background(), g, fakeRoot(true), t.TempDir(), records)
		assert.ErrorIs(t, err, core.ErrPrecondition)
		assert.False(t, fake.CalledPrefix("profiles"))
	})

	after, err := snapshot.Tree(root)
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
}

func TestRemoveAndRestore(t *testing.T) {
	root := fakeSystem(t)
	records, err := ListRecords(root)
	require.NoError(t, err)
	dir, _, err := Backup(records, t.TempDir(), time.Now())
	require.NoError(t, err)

	g, fake, _ := newGuard(harness.ModeAssumeYes)
	fake.On("csrutil status", sipDisabled)
	require.NoError(t, Remove(context.Background(), g, fakeRoot(true), dir, records))

	for _, r := range records {
		assert.NoFileExists(t, r.Path)
	}
	assert.True(t, fake.Called("profiles remove -all -forced"))
	assert.Empty(t, g.Report().Failures())

	g2, _, _ := newGuard(harness.ModeAssumeYes)
	require.NoError(t, Restore(context.Background(), g2, fakeRoot(true), dir))
	for _, r := range records {
		assert.FileExists(t, r.Path)
	}
	data, err := os.ReadFile(filepath.Join(root, "var/db/ConfigurationProfiles/Settings/.cloudConfigRecordFound"))
	require.NoError(t, err)
	assert.Equal(t, "bb", string(data))
}

func TestRemove_DryRunNeedsNoBackup(t *testing.T) {
	root := fakeSystem(t)
	records, err := ListRecords(root)
	require.NoError(t, err)

	g, fake, _ := newGuard(harness.ModeDryRun)
	fake.On("csrutil status", sipDisabled)
	require.NoError(t, Remove(context.Background(), g, fakeRoot(true), "", records))

	for _, r := range records {
		assert.FileExists(t, r.Path)
	}
	assert.Equal(t, []string{"csrutil status"}, fake.Calls())
	assert.Equal(t, len(records)+1, g.Report().Count(harness.DryRun))
}

func TestRestore_RequiresManifest(t *testing.T) {
	g, _, _ := newGuard(harness.ModeAssumeYes)
	err := Restore(context.Background(), g, fakeRoot(true), t.TempDir())
	assert.ErrorIs(t, err, core.ErrPrecondition)
}
