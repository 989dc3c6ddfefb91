package mdm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/fsutil"
	"github.com/lakshaymaurya-felt/macmole/internal/runner"
)

const (
	// ManifestName is the manifest file inside a backup directory.
	ManifestName = "manifest.yaml"
	// RestoreScriptName is the standalone restore script.
	RestoreScriptName = "restore.sh"

	filesDir = "files"
)

// ErrNoBackup is returned when a removal is attempted without a valid backup.
var ErrNoBackup = errors.New("no MDM backup")

// Manifest describes a backup directory.
type Manifest struct {
	ID           string          `yaml:"id"`
	Created      time.Time       `yaml:"created"`
	Host         string          `yaml:"host"`
	MacOSVersion string          `yaml:"macos_version"`
	Entries      []ManifestEntry `yaml:"entries"`
}

// ManifestEntry is one backed-up file.
type ManifestEntry struct {
	// Path is where the file lives on the system.
	Path string `yaml:"path"`
	// Rel is the copy's location relative to the backup's files directory.
	Rel  string      `yaml:"rel"`
	Size int64       `yaml:"size"`
	Mode os.FileMode `yaml:"mode"`
}

// Backup copies records into a new directory under backupRoot named
// mdm-backup-<timestamp>-<id8>, writes a manifest and an executable
// restore.sh, and returns the directory.
func Backup(records []Record, backupRoot string, now time.Time) (string, *Manifest, error) {
	id := uuid.New()
	dir := filepath.Join(backupRoot,
		fmt.Sprintf("mdm-backup-%s-%s", now.Format("20060102-150405"), id.String()[:8]))
	if err := os.MkdirAll(filepath.Join(dir, filesDir), 0o700); err != nil {
		return "", nil, fmt.Errorf("mdm: backup: %w", err)
	}

	host, _ := os.Hostname()
	m := &Manifest{
		ID:           id.String(),
		Created:      now.UTC(),
		Host:         host,
		MacOSVersion: core.MacOSVersion(),
	}

	for _, r := range records {
		dst := filepath.Join(dir, filesDir, r.Rel)
		if err := copyFile(r.Path, dst, r.Mode); err != nil {
			return dir, nil, fmt.Errorf("mdm: backup %s: %w", r.Path, err)
		}
		m.Entries = append(m.Entries, ManifestEntry{Path: r.Path, Rel: r.Rel, Size: r.Size, Mode: r.Mode})
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return dir, nil, fmt.Errorf("mdm: marshal manifest: %w", err)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, ManifestName), data, 0o600); err != nil {
		return dir, nil, fmt.Errorf("mdm: write manifest: %w", err)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, RestoreScriptName), []byte(restoreScript(dir, m)), 0o755); err != nil {
		return dir, nil, fmt.Errorf("mdm: write restore script: %w", err)
	}
	return dir, m, nil
}

// restoreScript renders a POSIX shell script that copies every entry back.
func restoreScript(dir string, m *Manifest) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "# MDM record backup %s created %s on %s\n", m.ID, m.Created.Format(time.RFC3339), m.Host)
	b.WriteString("set -e\n\n")
	b.WriteString("if [ \"$(id -u)\" -ne 0 ]; then\n  echo \"run as root\" >&2\n  exit 1\nfi\n\n")
	for _, e := range m.Entries {
		src := filepath.Join(dir, filesDir, e.Rel)
		fmt.Fprintf(&b, "mkdir -p %s\n", runner.Quote(filepath.Dir(e.Path)))
		fmt.Fprintf(&b, "cp -p %s %s\n", runner.Quote(src), runner.Quote(e.Path))
	}
	fmt.Fprintf(&b, "\necho \"restored %d records\"\n", len(m.Entries))
	return b.String()
}

// LoadManifest reads the manifest of a backup directory.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("mdm: %s: %w", dir, ErrNoBackup)
		}
		return nil, fmt.Errorf("mdm: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("mdm: parse manifest: %w", err)
	}
	return &m, nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o600
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
