package clean

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/lakshaymaurya-felt/macmole/internal/config"
	"github.com/lakshaymaurya-felt/macmole/internal/core"
	"github.com/lakshaymaurya-felt/macmole/internal/whitelist"
)

// poolReleaseTimeout bounds waiting for sizing workers to exit.
const poolReleaseTimeout = 5 * time.Second

// Scanner expands clean targets into sized CleanItems.
type Scanner struct {
	concurrency int
	whitelist   *whitelist.Store
	minAge      time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu      sync.Mutex
	skipped []SkippedPath

	sizedCount atomic.Int64
}

// NewScanner creates a scanner whose sizing pool runs at most concurrency
// workers. minAgeDays applies to AgeFiltered targets; zero disables it.
func NewScanner(concurrency int, wl *whitelist.Store, minAgeDays int, logger *slog.Logger) *Scanner {
	if concurrency <= 0 {
		concurrency = config.DefaultConcurrency
	}
	return &Scanner{
		concurrency: concurrency,
		whitelist:   wl,
		minAge:      time.Duration(minAgeDays) * 24 * time.Hour,
		now:         time.Now,
		logger:      logger.With("component", "scanner"),
	}
}

// Skipped returns paths excluded during the last scan.
func (s *Scanner) Skipped() []SkippedPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SkippedPath(nil), s.skipped...)
}

// SizedCount returns how many paths were sized so far.
func (s *Scanner) SizedCount() int64 {
	return s.sizedCount.Load()
}

func (s *Scanner) skip(path, target, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped = append(s.skipped, SkippedPath{Path: path, Target: target, Reason: reason})
}

// Scan resolves targets into items in target order. Command targets pass
// through unsized. Globs are expanded, missing paths dropped, whitelisted
// paths recorded as skipped, and paths nested inside an earlier item are
// dropped so nothing is counted twice.
func (s *Scanner) Scan(ctx context.Context, targets []config.CleanTarget) ([]CleanItem, error) {
	s.mu.Lock()
	s.skipped = nil
	s.mu.Unlock()

	var items []CleanItem
	var claimed []string

	for _, t := range targets {
		if t.IsCommand() {
			items = append(items, itemFromTarget(t, ""))
			continue
		}
		for _, pattern := range t.Paths {
			for _, path := range expand(pattern) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if s.whitelist.IsWhitelisted(path) {
					s.skip(path, t.Name, "whitelisted")
					continue
				}
				if coveredBy(path, claimed) {
					s.logger.Debug("path already covered", "path", path, "target", t.Name)
					continue
				}
				if core.IsProtected(path) {
					s.skip(path, t.Name, "protected system location")
					continue
				}

				item := itemFromTarget(t, path)
				if t.KeepRoot {
					entries, ok := s.entries(path, t)
					if !ok {
						continue
					}
					item.Entries = entries
				}
				claimed = append(claimed, path)
				items = append(items, item)
			}
		}
	}

	if err := s.Size(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// entries lists the removable children of a KeepRoot directory.
func (s *Scanner) entries(dir string, t config.CleanTarget) ([]string, bool) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, false
	}
	children, err := os.ReadDir(dir)
	if err != nil {
		s.skip(dir, t.Name, fmt.Sprintf("unreadable: %v", err))
		return nil, false
	}

	out := make([]string, 0, len(children))
	for _, c := range children {
		p := filepath.Join(dir, c.Name())
		if s.whitelist.IsWhitelisted(p) || s.containsWhitelisted(p) {
			s.skip(p, t.Name, "whitelisted")
			continue
		}
		if t.AgeFiltered && s.minAge > 0 {
			fi, err := c.Info()
			if err != nil || s.now().Sub(fi.ModTime()) < s.minAge {
				continue
			}
		}
		out = append(out, p)
	}
	return out, true
}

// containsWhitelisted reports whether a whitelist entry lies beneath p.
func (s *Scanner) containsWhitelisted(p string) bool {
	if s.whitelist == nil {
		return false
	}
	for _, w := range s.whitelist.List() {
		if core.IsWithin(w, p) {
			return true
		}
	}
	return false
}

// Size measures every path item on a bounded ants pool, adding to Size.
func (s *Scanner) Size(ctx context.Context, items []CleanItem) error {
	pool, err := ants.NewPool(s.concurrency, ants.WithDisablePurge(true))
	if err != nil {
		return fmt.Errorf("clean: create pool: %w", err)
	}
	defer func() {
		if err := pool.ReleaseTimeout(poolReleaseTimeout); err != nil {
			s.logger.Warn("sizing pool did not drain", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for i := range items {
		if items[i].IsCommand() {
			continue
		}
		paths := []string{items[i].Path}
		if items[i].KeepRoot() {
			paths = items[i].Entries
		}

		for _, path := range paths {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				n, err := core.DirSize(path)
				if err != nil {
					s.logger.Debug("size failed", "path", path, "error", err)
				}
				s.sizedCount.Add(1)
				s.mu.Lock()
				items[i].Size += n
				s.mu.Unlock()
			})
			if submitErr != nil {
				wg.Done()
				return fmt.Errorf("clean: submit sizing task: %w", submitErr)
			}
		}
	}
	wg.Wait()
	return ctx.Err()
}

// expand resolves a glob pattern to existing paths, sorted.
func expand(pattern string) []string {
	if !hasMeta(pattern) {
		if _, err := os.Lstat(pattern); err != nil {
			return nil
		}
		return []string{pattern}
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func hasMeta(p string) bool {
	for _, c := range p {
		switch c {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// coveredBy reports whether path equals or lies inside a claimed path.
func coveredBy(path string, claimed []string) bool {
	for _, c := range claimed {
		if core.IsWithin(path, c) {
			return true
		}
	}
	return false
}
