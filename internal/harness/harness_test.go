package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/macmole/internal/logger"
	"github.com/lakshaymaurya-felt/macmole/internal/runner/runnertest"
	"github.com/lakshaymaurya-felt/macmole/internal/snapshot"
)

// ─── Test doubles ────────────────────────────────────────────────────────────

type recordingDeleter struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (d *recordingDeleter) RemoveAll(path string) (int64, error) {
	d.mu.Lock()
	d.calls = append(d.calls, path)
	err := d.fail[path]
	d.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return SafeDeleter{}.RemoveAll(path)
}

// forbiddenPrompter fails the test if a question is asked.
type forbiddenPrompter struct{ t *testing.T }

func (p forbiddenPrompter) Confirm(q string, _ bool) bool {
	p.t.Errorf("unexpected prompt: %q", q)
	return false
}

type scriptedPrompter struct {
	answers   []bool
	questions []string
}

func (p *scriptedPrompter) Confirm(q string, def bool) bool {
	p.questions = append(p.questions, q)
	if len(p.answers) == 0 {
		return def
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a
}

func sandbox(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cache", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cache", "a.bin"), bytes.Repeat([]byte("x"), 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cache", "sub", "b.bin"), bytes.Repeat([]byte("y"), 50), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "log.txt"), []byte("log"), 0o644))
	return root
}

func newGuard(opts Options, p Prompter, d Deleter) (*Guard, *runnertest.Fake, *bytes.Buffer) {
	fake := runnertest.New()
	var out bytes.Buffer
	return NewGuard(opts, p, d, fake, &out, logger.Discard()), fake, &out
}

// ─── Options ─────────────────────────────────────────────────────────────────

func TestOptionsFromFlags(t *testing.T) {
	assert.Equal(t, ModeInteractive, OptionsFromFlags(false, false, false).Mode)
	assert.Equal(t, ModeAssumeYes, OptionsFromFlags(false, true, false).Mode)
	assert.Equal(t, ModeDryRun, OptionsFromFlags(true, false, false).Mode)
	assert.Equal(t, ModeDryRun, OptionsFromFlags(true, true, false).Mode, "dry-run wins over yes")
	assert.True(t, OptionsFromFlags(false, false, true).Aggressive)
	assert.Equal(t, "dry-run", ModeDryRun.String())
}

// ─── Prompter ────────────────────────────────────────────────────────────────

func TestPrompter_Answers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   bool
		want  bool
	}{
		{"yes", "y\n", false, true},
		{"YES upper", "YES\n", false, true},
		{"no", "no\n", true, false},
		{"empty uses default true", "\n", true, true},
		{"empty uses default false", "\n", false, false},
		{"eof uses default", "", true, true},
		{"garbage then yes", "maybe\ny\n", false, true},
		{"garbage exhausts attempts", "a\nb\nc\ny\n", true, true},
		{"garbage then eof", "what", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out, true)
			assert.Equal(t, tt.want, p.Confirm("Proceed?", tt.def))
			assert.Contains(t, out.String(), "Proceed?")
		})
	}
}

func TestPrompter_NonInteractiveDoesNotRead(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("n\n")
	p := NewPrompter(in, &out, false)

	assert.True(t, p.Confirm("Proceed?", true))
	assert.Empty(t, out.String())
	assert.Equal(t, 2, in.Len(), "input must be left unread")
}

// ─── Guard: documented properties ────────────────────────────────────────────

func TestGuard_DryRunMutatesNothing(t *testing.T) {
	root := sandbox(t)
	before, err := snapshot.Tree(root)
	require.NoError(t, err)

	del := &recordingDeleter{}
	g, fake, out := newGuard(Options{Mode: ModeDryRun}, forbiddenPrompter{t}, del)
	ctx := context.Background()

	s := g.RemovePath(ctx, filepath.Join(root, "cache"), "cache", true)
	g.RemoveContents(ctx, root, "everything", true)
	g.RemoveGlob(ctx, filepath.Join(root, "*.txt"), "logs", true)
	g.WriteFile(ctx, filepath.Join(root, "new.plist"), []byte("x"), 0o644, "plist", true)
	g.Run(ctx, "purge", true, "purge")

	after, err := snapshot.Tree(root)
	require.NoError(t, err)
	assert.True(t, before.Equal(after), "dry-run changed the tree")
	assert.Empty(t, del.calls)
	assert.Empty(t, fake.Calls())

	assert.Equal(t, DryRun, s.Outcome)
	assert.Equal(t, int64(150), s.Bytes)
	assert.Contains(t, out.String(), "[dry-run]")
	assert.Contains(t, out.String(), "purge")
	assert.Zero(t, g.Report().Freed())
	assert.Positive(t, g.Report().WouldFree())
}

func TestGuard_AssumeYesNeverPrompts(t *testing.T) {
	root := sandbox(t)
	g, fake, _ := newGuard(Options{Mode: ModeAssumeYes}, forbiddenPrompter{t}, &recordingDeleter{})
	ctx := context.Background()

	s := g.RemovePath(ctx, filepath.Join(root, "cache"), "cache", false)
	assert.Equal(t, Done, s.Outcome)
	assert.Equal(t, int64(150), s.Bytes)
	assert.NoDirExists(t, filepath.Join(root, "cache"))

	r := g.Run(ctx, "reindex", false, "mdutil", "-E", "/")
	assert.Equal(t, Done, r.Outcome)
	assert.True(t, fake.Called("mdutil -E /"))

	assert.True(t, g.Confirm("Continue?", false))
}

func TestGuard_MissingPathIsNoOpSuccess(t *testing.T) {
	for _, mode := range []Mode{ModeInteractive, ModeAssumeYes, ModeDryRun} {
		t.Run(mode.String(), func(t *testing.T) {
			del := &recordingDeleter{}
			g, _, _ := newGuard(Options{Mode: mode}, forbiddenPrompter{t}, del)

			s := g.RemovePath(context.Background(), filepath.Join(t.TempDir(), "absent"), "ghost", true)
			assert.Equal(t, Missing, s.Outcome)
			assert.NoError(t, s.Err)
			assert.True(t, s.OK())
			assert.Empty(t, del.calls)
		})
	}
}

// ─── Guard: interactive behavior ─────────────────────────────────────────────

func TestGuard_InteractiveDecline(t *testing.T) {
	root := sandbox(t)
	p := &scriptedPrompter{answers: []bool{false}}
	del := &recordingDeleter{}
	g, _, _ := newGuard(Options{Mode: ModeInteractive}, p, del)

	s := g.RemovePath(context.Background(), filepath.Join(root, "log.txt"), "log", true)
	assert.Equal(t, Skipped, s.Outcome)
	assert.FileExists(t, filepath.Join(root, "log.txt"))
	assert.Empty(t, del.calls)
	require.Len(t, p.questions, 1)
	assert.Contains(t, p.questions[0], "Remove log")
	assert.Contains(t, p.questions[0], "3 B")
}

func TestGuard_InteractiveUsesDefaultAtEOF(t *testing.T) {
	root := sandbox(t)
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out, true)
	g := NewGuard(Options{Mode: ModeInteractive}, p, nil, runnertest.New(), &out, logger.Discard())

	kept := g.RemovePath(context.Background(), filepath.Join(root, "log.txt"), "log", false)
	assert.Equal(t, Skipped, kept.Outcome)

	removed := g.RemovePath(context.Background(), filepath.Join(root, "cache"), "cache", true)
	assert.Equal(t, Done, removed.Outcome)
}

func TestGuard_RemoveContentsKeepsRoot(t *testing.T) {
	root := sandbox(t)
	cache := filepath.Join(root, "cache")
	p := &scriptedPrompter{}
	g, _, _ := newGuard(Options{Mode: ModeInteractive}, p, &recordingDeleter{})

	s := g.RemoveContents(context.Background(), cache, "cache", true)
	assert.Equal(t, Done, s.Outcome)
	assert.Equal(t, int64(150), s.Bytes)
	assert.DirExists(t, cache)
	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Len(t, p.questions, 1, "one prompt for the whole directory")
}

func TestGuard_RemoveContentsEmptyDir(t *testing.T) {
	g, _, _ := newGuard(Options{Mode: ModeAssumeYes}, nil, &recordingDeleter{})
	s := g.RemoveContents(context.Background(), t.TempDir(), "empty", true)
	assert.Equal(t, Missing, s.Outcome)
}

// ─── Guard: failures are warnings ────────────────────────────────────────────

func TestGuard_FailureIsRecordedAndRunContinues(t *testing.T) {
	root := sandbox(t)
	bad := filepath.Join(root, "log.txt")
	del := &recordingDeleter{fail: map[string]error{bad: errors.New("operation not permitted")}}
	g, fake, out := newGuard(Options{Mode: ModeAssumeYes}, nil, del)
	fake.OnError("killall mds", 1, "No matching processes")
	ctx := context.Background()

	first := g.RemovePath(ctx, bad, "log", true)
	second := g.Run(ctx, "restart mds", true, "killall", "mds")
	third := g.RemovePath(ctx, filepath.Join(root, "cache"), "cache", true)

	assert.Equal(t, Failed, first.Outcome)
	assert.Equal(t, Failed, second.Outcome)
	assert.Equal(t, Done, third.Outcome)

	rep := g.Report()
	assert.Len(t, rep.Failures(), 2)
	assert.Equal(t, 1, rep.Count(Done))
	assert.Contains(t, out.String(), "operation not permitted")

	var summary bytes.Buffer
	rep.Render(&summary)
	assert.Contains(t, summary.String(), "2 failed")
	assert.Contains(t, summary.String(), "Freed")
}

func TestGuard_RemoveGlob(t *testing.T) {
	root := sandbox(t)
	g, _, _ := newGuard(Options{Mode: ModeAssumeYes}, nil, &recordingDeleter{})

	steps := g.RemoveGlob(context.Background(), filepath.Join(root, "cache", "*.bin"), "bins", true)
	require.Len(t, steps, 1)
	assert.Equal(t, Done, steps[0].Outcome)
	assert.NoFileExists(t, filepath.Join(root, "cache", "a.bin"))

	none := g.RemoveGlob(context.Background(), filepath.Join(root, "*.nothing"), "none", true)
	require.Len(t, none, 1)
	assert.Equal(t, Missing, none[0].Outcome)
}

func TestGuard_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.conf")
	g, _, _ := newGuard(Options{Mode: ModeAssumeYes}, nil, nil)

	s := g.WriteFile(context.Background(), path, []byte("a=1\n"), 0o644, "config", true)
	assert.Equal(t, Done, s.Outcome)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a=1\n", string(data))
}

func TestGuard_ConfirmModes(t *testing.T) {
	g, _, _ := newGuard(Options{Mode: ModeDryRun}, forbiddenPrompter{t}, nil)
	assert.True(t, g.Confirm("go?", false))

	g, _, _ = newGuard(Options{Mode: ModeInteractive}, FixedPrompter(false), nil)
	assert.False(t, g.Confirm("go?", true))
}
