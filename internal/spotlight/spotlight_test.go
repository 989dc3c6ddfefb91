package spotlight

import (
	"bytes"
	"context"
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

func TestParseStatus(t *testing.T) {
	tests := []struct {
		out  string
		want IndexState
	}{
		{"/:\n\tIndexing enabled. \n", StateEnabled},
		{"/:\n\tIndexing disabled.\n", StateDisabled},
		{"/Volumes/USB:\n\tIndexing and searching disabled.\n", StateDisabled},
		{"/:\n\tError: unknown indexing state.\n", StateError},
		{"", StateUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStatus("/", tt.out).State, tt.out)
	}
	assert.Equal(t, "Indexing enabled", ParseStatus("/", "/:\n\tIndexing enabled.\n").Detail)
}

func TestGetStatus(t *testing.T) {
	fake := runnertest.New().On("mdutil -s /", "/:\n\tIndexing enabled.\n")
	st, err := GetStatus(context.Background(), fake, "/")
	require.NoError(t, err)
	assert.Equal(t, StateEnabled, st.State)

	broken := runnertest.New().OnError("mdutil -s /nope", 1, "")
	_, err = GetStatus(context.Background(), broken, "/nope")
	assert.Error(t, err)
}

func newGuard(mode harness.Mode, aggressive bool) (*harness.Guard, *runnertest.Fake, *bytes.Buffer) {
	fake := runnertest.New()
	var out bytes.Buffer
	g := harness.NewGuard(harness.Options{Mode: mode, Aggressive: aggressive}, nil, nil, fake, &out, logger.Discard())
	return g, fake, &out
}

func TestRebuild_RequiresRoot(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes, false)
	err := Rebuild(context.Background(), g, fakeRoot(false), "/")
	assert.ErrorIs(t, err, core.ErrPrecondition)
	assert.Empty(t, fake.Calls())
}

func TestRebuild_Sequence(t *testing.T) {
	g, fake, _ := newGuard(harness.ModeAssumeYes, false)
	fake.On("mdutil -s /", "/:\n\tIndexing enabled.\n")

	require.NoError(t, Rebuild(context.Background(), g, fakeRoot(true), "/"))
	assert.Equal(t, []string{
		"mdutil -i off /",
		"mdutil -E /",
		"mdutil -i on /",
		"killall mds",
		"mdutil -s /",
	}, fake.Calls())
}

func TestRebuild_KillallFailureIsWarning(t *testing.T) {
	g, fake, out := newGuard(harness.ModeAssumeYes, false)
	fake.OnError("killall mds", 1, "No matching processes belonging to you were found")

	require.NoError(t, Rebuild(context.Background(), g, fakeRoot(true), "/"))
	assert.Len(t, g.Report().Failures(), 1)
	assert.Contains(t, out.String(), "Restart metadata server failed")
}

func TestRebuild_DryRun(t *testing.T) {
	g, fake, out := newGuard(harness.ModeDryRun, true)
	require.NoError(t, Rebuild(context.Background(), g, fakeRoot(true), t.TempDir()))
	assert.Empty(t, fake.Calls())
	assert.Contains(t, out.String(), "mdutil -E")
}
