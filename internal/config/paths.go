package config

import (
	"path/filepath"
)

// Categories understood by FilterTargets.
const (
	CategoryUser    = "user"
	CategoryBrowser = "browser"
	CategoryDev     = "dev"
	CategorySystem  = "system"
)

// CleanTarget represents a category of files that can be cleaned.
type CleanTarget struct {
	// Name is the unique identifier for this target.
	Name string

	// Paths is the list of filesystem paths to clean. Entries may contain
	// glob wildcards.
	Paths []string

	// Command, when set, is run instead of deleting Paths.
	Command []string

	// Description is a human-readable description.
	Description string

	// RequiresAdmin indicates whether root is needed.
	RequiresAdmin bool

	// Category groups related targets ("user", "browser", "dev", "system").
	Category string

	// RiskLevel is one of "low", "medium", "high".
	RiskLevel string

	// Aggressive targets only run with --aggressive.
	Aggressive bool

	// KeepRoot removes a directory's contents but keeps the directory itself.
	// Applications expect cache roots like ~/Library/Caches to exist.
	KeepRoot bool

	// AgeFiltered entries are subject to clean.min_age_days.
	AgeFiltered bool
}

// IsCommand reports whether the target runs a command instead of deleting paths.
func (t CleanTarget) IsCommand() bool {
	return len(t.Command) > 0
}

// GetCleanTargets returns all available cleanup targets rooted at home.
func GetCleanTargets(home string) []CleanTarget {
	lib := filepath.Join(home, "Library")
	appSupport := filepath.Join(lib, "Application Support")
	caches := filepath.Join(lib, "Caches")
	xcode := filepath.Join(lib, "Developer", "Xcode")

	return []CleanTarget{
		// ── User ────────────────────────────────────────────────
		{
			Name:        "UserCaches",
			Paths:       []string{caches},
			Description: "User application caches",
			Category:    CategoryUser,
			RiskLevel:   "low",
			KeepRoot:    true,
		},
		{
			Name:        "UserLogs",
			Paths:       []string{filepath.Join(lib, "Logs")},
			Description: "User application logs",
			Category:    CategoryUser,
			RiskLevel:   "low",
			KeepRoot:    true,
			AgeFiltered: true,
		},
		{
			Name:        "DiagnosticReports",
			Paths:       []string{filepath.Join(lib, "Logs", "DiagnosticReports")},
			Description: "Crash and hang reports",
			Category:    CategoryUser,
			RiskLevel:   "low",
			KeepRoot:    true,
			AgeFiltered: true,
		},
		{
			Name:        "Trash",
			Paths:       []string{filepath.Join(home, ".Trash")},
			Description: "Files in the Trash",
			Category:    CategoryUser,
			RiskLevel:   "medium",
			KeepRoot:    true,
		},
		{
			Name:        "QuickLookCache",
			Command:     []string{"qlmanage", "-r", "cache"},
			Description: "Reset QuickLook thumbnail cache",
			Category:    CategoryUser,
			RiskLevel:   "low",
		},
		{
			Name:        "MailDownloads",
			Paths:       []string{filepath.Join(lib, "Containers", "com.apple.mail", "Data", "Library", "Mail Downloads")},
			Description: "Attachments opened from Mail",
			Category:    CategoryUser,
			RiskLevel:   "medium",
			Aggressive:  true,
			KeepRoot:    true,
		},
		{
			Name:        "IOSBackups",
			Paths:       []string{filepath.Join(appSupport, "MobileSync", "Backup", "*")},
			Description: "iPhone and iPad device backups",
			Category:    CategoryUser,
			RiskLevel:   "high",
			Aggressive:  true,
		},

		// ── Browser Caches ──────────────────────────────────────
		{
			Name: "SafariCache",
			Paths: []string{
				filepath.Join(caches, "com.apple.Safari"),
				filepath.Join(lib, "Containers", "com.apple.Safari", "Data", "Library", "Caches"),
			},
			Description: "Safari browser cache",
			Category:    CategoryBrowser,
			RiskLevel:   "low",
			KeepRoot:    true,
		},
		{
			Name: "ChromeCache",
			Paths: []string{
				filepath.Join(caches, "Google", "Chrome"),
				filepath.Join(appSupport, "Google", "Chrome", "*", "Code Cache"),
				filepath.Join(appSupport, "Google", "Chrome", "*", "GPUCache"),
				filepath.Join(appSupport, "Google", "Chrome", "*", "Service Worker", "CacheStorage"),
			},
			Description: "Google Chrome browser cache",
			Category:    CategoryBrowser,
			RiskLevel:   "low",
		},
		{
			Name: "FirefoxCache",
			Paths: []string{
				filepath.Join(caches, "Firefox", "Profiles", "*", "cache2"),
				filepath.Join(caches, "Firefox", "Profiles", "*", "startupCache"),
			},
			Description: "Mozilla Firefox browser cache",
			Category:    CategoryBrowser,
			RiskLevel:   "low",
		},
		{
			Name: "EdgeCache",
			Paths: []string{
				filepath.Join(caches, "Microsoft Edge"),
				filepath.Join(appSupport, "Microsoft Edge", "*", "Code Cache"),
				filepath.Join(appSupport, "Microsoft Edge", "*", "GPUCache"),
			},
			Description: "Microsoft Edge browser cache",
			Category:    CategoryBrowser,
			RiskLevel:   "low",
		},
		{
			Name: "BraveCache",
			Paths: []string{
				filepath.Join(caches, "BraveSoftware", "Brave-Browser"),
				filepath.Join(appSupport, "BraveSoftware", "Brave-Browser", "*", "Code Cache"),
				filepath.Join(appSupport, "BraveSoftware", "Brave-Browser", "*", "GPUCache"),
			},
			Description: "Brave browser cache",
			Category:    CategoryBrowser,
			RiskLevel:   "low",
		},

		// ── Developer Caches ────────────────────────────────────
		{
			Name:        "XcodeDerivedData",
			Paths:       []string{filepath.Join(xcode, "DerivedData")},
			Description: "Xcode build intermediates",
			Category:    CategoryDev,
			RiskLevel:   "low",
			KeepRoot:    true,
		},
		{
			Name:        "CoreSimulatorCaches",
			Paths:       []string{filepath.Join(lib, "Developer", "CoreSimulator", "Caches")},
			Description: "iOS Simulator caches",
			Category:    CategoryDev,
			RiskLevel:   "low",
			KeepRoot:    true,
		},
		{
			Name:        "XcodeArchives",
			Paths:       []string{filepath.Join(xcode, "Archives")},
			Description: "Xcode archived builds",
			Category:    CategoryDev,
			RiskLevel:   "high",
			Aggressive:  true,
			KeepRoot:    true,
		},
		{
			Name:        "IOSDeviceSupport",
			Paths:       []string{filepath.Join(xcode, "iOS DeviceSupport")},
			Description: "Xcode device symbol files (re-downloaded on connect)",
			Category:    CategoryDev,
			RiskLevel:   "medium",
			Aggressive:  true,
			KeepRoot:    true,
		},
		{
			Name:        "NpmCache",
			Paths:       []string{filepath.Join(home, ".npm", "_cacache")},
			Description: "npm package manager cache",
			Category:    CategoryDev,
			RiskLevel:   "low",
		},
		{
			Name:        "YarnCache",
			Paths:       []string{filepath.Join(caches, "Yarn")},
			Description: "Yarn package cache",
			Category:    CategoryDev,
			RiskLevel:   "low",
		},
		{
			Name:        "PipCache",
			Paths:       []string{filepath.Join(caches, "pip")},
			Description: "Python pip package cache",
			Category:    CategoryDev,
			RiskLevel:   "low",
		},
		{
			Name:        "HomebrewCache",
			Command:     []string{"brew", "cleanup", "-s"},
			Description: "Homebrew downloads and stale versions",
			Category:    CategoryDev,
			RiskLevel:   "low",
		},
		{
			Name:        "GoBuildCache",
			Paths:       []string{filepath.Join(caches, "go-build")},
			Description: "Go build cache",
			Category:    CategoryDev,
			RiskLevel:   "low",
		},
		{
			Name:        "GradleCache",
			Paths:       []string{filepath.Join(home, ".gradle", "caches")},
			Description: "Gradle build cache",
			Category:    CategoryDev,
			RiskLevel:   "low",
		},
		{
			Name:        "CocoaPodsCache",
			Paths:       []string{filepath.Join(caches, "CocoaPods")},
			Description: "CocoaPods spec and pod cache",
			Category:    CategoryDev,
			RiskLevel:   "low",
		},

		// ── System ──────────────────────────────────────────────
		{
			Name:          "SystemCaches",
			Paths:         []string{"/Library/Caches"},
			Description:   "Shared application caches",
			RequiresAdmin: true,
			Category:      CategorySystem,
			RiskLevel:     "medium",
			KeepRoot:      true,
		},
		{
			Name:          "SystemLogs",
			Paths:         []string{"/Library/Logs", "/private/var/log/asl"},
			Description:   "System and Apple System Log files",
			RequiresAdmin: true,
			Category:      CategorySystem,
			RiskLevel:     "low",
			KeepRoot:      true,
			AgeFiltered:   true,
		},
		{
			Name:          "SystemDiagnostics",
			Paths:         []string{"/Library/Logs/DiagnosticReports"},
			Description:   "System crash reports",
			RequiresAdmin: true,
			Category:      CategorySystem,
			RiskLevel:     "low",
			KeepRoot:      true,
			AgeFiltered:   true,
		},
		{
			Name:        "LocalSnapshots",
			Command:     []string{"tmutil", "thinlocalsnapshots", "/", "9999999999999", "4"},
			Description: "Thin local Time Machine snapshots",
			Category:    CategorySystem,
			RiskLevel:   "medium",
			Aggressive:  true,
		},
		{
			Name:          "PurgeMemory",
			Command:       []string{"purge"},
			Description:   "Flush inactive disk cache memory",
			RequiresAdmin: true,
			Category:      CategorySystem,
			RiskLevel:     "low",
			Aggressive:    true,
		},
		{
			Name:          "PeriodicScripts",
			Command:       []string{"periodic", "daily", "weekly", "monthly"},
			Description:   "Run periodic maintenance scripts",
			RequiresAdmin: true,
			Category:      CategorySystem,
			RiskLevel:     "low",
			Aggressive:    true,
		},
	}
}

// GetTargetsByCategory returns clean targets filtered by category.
func GetTargetsByCategory(home, category string) []CleanTarget {
	var result []CleanTarget
	for _, t := range GetCleanTargets(home) {
		if t.Category == category {
			result = append(result, t)
		}
	}
	return result
}

// FilterTargets keeps targets whose category is listed (all categories when
// categories is empty), dropping aggressive-only targets unless aggressive is
// set and admin targets unless isRoot. The dropped admin targets are returned
// separately so callers can warn about them.
func FilterTargets(targets []CleanTarget, categories []string, aggressive, isRoot bool) (kept, needRoot []CleanTarget) {
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	for _, t := range targets {
		if len(want) > 0 && !want[t.Category] {
			continue
		}
		if t.Aggressive && !aggressive {
			continue
		}
		if t.RequiresAdmin && !isRoot {
			needRoot = append(needRoot, t)
			continue
		}
		kept = append(kept, t)
	}
	return kept, needRoot
}

// SkipTargets drops targets whose Name appears in names.
func SkipTargets(targets []CleanTarget, names []string) []CleanTarget {
	if len(names) == 0 {
		return targets
	}
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	var result []CleanTarget
	for _, t := range targets {
		if !skip[t.Name] {
			result = append(result, t)
		}
	}
	return result
}

// GetNeverDeletePaths returns paths that must NEVER be deleted under any
// circumstances, nor any directory containing them. home may be empty.
func GetNeverDeletePaths(home string) []string {
	paths := []string{
		"/System",
		"/usr",
		"/bin",
		"/sbin",
		"/etc",
		"/var",
		"/private",
		"/private/etc",
		"/private/var",
		"/private/var/db",
		"/Library",
		"/Applications",
		"/Users",
		"/Volumes",
		"/cores",
		"/opt",
		"/Library/Preferences",
		"/Library/Keychains",
		"/Library/LaunchDaemons",
	}
	if home != "" {
		paths = append(paths,
			home,
			filepath.Join(home, "Library"),
			filepath.Join(home, "Library", "Preferences"),
			filepath.Join(home, "Library", "Keychains"),
			filepath.Join(home, "Library", "Mobile Documents"),
			filepath.Join(home, "Documents"),
			filepath.Join(home, "Desktop"),
			filepath.Join(home, ".ssh"),
		)
	}
	return paths
}
