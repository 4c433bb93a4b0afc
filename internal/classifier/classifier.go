// Package classifier implements the Classifier component: pattern-based
// categorization and cleanup-safety classification of filesystem paths.
// Grounded verbatim on
// _examples/original_source/backend/src/disk_analyzer/categorizer.rs
// (the five pattern lists, the determine_category-vs-classify_for_cleanup
// asymmetry — plain categorize never checks system_patterns, cleanup
// classification checks them first).
package classifier

import "strings"

// Category is the cleanup bucket spec §3 Cleanup Candidate names.
type Category string

const (
	CategoryCache          Category = "Cache"
	CategoryTemporaryFiles Category = "TemporaryFiles"
	CategoryOldDownloads   Category = "OldDownloads"
	CategoryOther          Category = "Other"
)

// Safety is the cleanup risk tier, totally ordered Safe < Maybe < Risky.
type Safety int

const (
	SafetySafe Safety = iota
	SafetyMaybe
	SafetyRisky
)

func (s Safety) String() string {
	switch s {
	case SafetySafe:
		return "Safe"
	case SafetyMaybe:
		return "Maybe"
	case SafetyRisky:
		return "Risky"
	default:
		return "Unknown"
	}
}

// Classifier holds the five substring pattern lists used for both plain
// categorization and cleanup classification.
type Classifier struct {
	cachePatterns    []string
	tempPatterns     []string
	downloadPatterns []string
	projectPatterns  []string
	systemPatterns   []string
}

// New returns a Classifier seeded with the default pattern lists.
func New() *Classifier {
	return &Classifier{
		cachePatterns: []string{
			".cache", "cache", "Cache", "node_modules", ".npm", ".yarn",
			"target/debug", "target/release", "__pycache__", ".pytest_cache",
		},
		tempPatterns: []string{
			"tmp", "temp", "Temp", ".tmp", "~", ".swp", ".bak",
		},
		downloadPatterns: []string{
			"Downloads", "downloads",
		},
		projectPatterns: []string{
			".git", "src", "Cargo.toml", "package.json", ".project", "pom.xml",
		},
		systemPatterns: []string{
			"System", "Windows", "Program Files",
			"/bin", "/sbin", "/usr", "/etc", "/var", "/sys", "/proc",
		},
	}
}

func matchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// DetermineCategory is the plain categorizer used by Categorize: it
// never consults the system pattern list, matching the original's
// determine_category/classify_for_cleanup asymmetry.
func (c *Classifier) DetermineCategory(path string) string {
	switch {
	case matchesAny(path, c.cachePatterns):
		return "caches"
	case matchesAny(path, c.tempPatterns):
		return "temporary_files"
	case matchesAny(path, c.downloadPatterns):
		return "downloads"
	case matchesAny(path, c.projectPatterns):
		return "projects"
	default:
		return "app_data"
	}
}

// ClassifyForCleanup returns (category, safety, rationale) per spec
// §4.14, testing pattern membership in system-first order.
func (c *Classifier) ClassifyForCleanup(path string) (Category, Safety, string) {
	switch {
	case matchesAny(path, c.systemPatterns):
		return CategoryOther, SafetyRisky, "system path"
	case matchesAny(path, c.cachePatterns):
		return CategoryCache, SafetySafe, "regenerable"
	case matchesAny(path, c.tempPatterns):
		return CategoryTemporaryFiles, SafetySafe, "ephemeral"
	case matchesAny(path, c.downloadPatterns):
		return CategoryOldDownloads, SafetyMaybe, "user review"
	case matchesAny(path, c.projectPatterns):
		return CategoryOther, SafetyRisky, "source code"
	default:
		return CategoryOther, SafetyMaybe, "review"
	}
}

// DetermineSafetyLevel reports only the safety tier of ClassifyForCleanup.
func (c *Classifier) DetermineSafetyLevel(path string) Safety {
	_, safety, _ := c.ClassifyForCleanup(path)
	return safety
}
