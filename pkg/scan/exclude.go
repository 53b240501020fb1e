package scan

import (
	"path/filepath"
	"strings"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

// DefaultExcludes returns the built-in exclude patterns
func DefaultExcludes() []string {
	return []string{
		"__pycache__",
		".git",
		".pytest_cache",
		".venv",
		"venv",
		"env",
		".idea",
		".vscode",
		"*.pyc",
		"*.pyo",
		"*.pyd",
		".DS_Store",
		"node_modules",
	}
}

// EngineArtifacts returns the patterns for files the engine writes into the project root
func EngineArtifacts() []string {
	return []string{
		models.DefaultTransactionLogName + "*",
		models.DefaultReportName,
		LockFileName,
	}
}

// LockFileName is the run lock created in the project root
const LockFileName = ".reorg.lock"

// Matcher decides whether a relative path is excluded
type Matcher struct {
	patterns []string
}

// NewMatcher creates a matcher over the given patterns
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			m.patterns = append(m.patterns, filepath.ToSlash(p))
		}
	}
	return m
}

// Patterns returns the patterns in use
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Match checks if a path should be excluded
// Patterns support:
//   - Exact names: __pycache__, .git
//   - Simple glob patterns: *.pyc, *.log
//   - Directory patterns: .git/, node_modules/
//   - Path patterns: build/*, **/test/*
func (m *Matcher) Match(relativePath string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	normalizedPath := filepath.ToSlash(relativePath)
	baseName := filepath.Base(relativePath)

	for _, pattern := range m.patterns {
		// Exact component name
		if pattern == baseName {
			return true
		}

		// Check if it's a directory pattern (ends with /)
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			if strings.HasPrefix(normalizedPath, dirPattern+"/") ||
				normalizedPath == dirPattern ||
				strings.Contains(normalizedPath, "/"+dirPattern+"/") ||
				matchGlob(baseName, dirPattern) {
				return true
			}
			continue
		}

		// **/pattern matches pattern at any level
		if strings.Contains(pattern, "**") {
			parts := strings.Split(pattern, "**/")
			if len(parts) == 2 && parts[0] == "" {
				suffix := parts[1]
				if matchGlob(baseName, suffix) {
					return true
				}
				if strings.HasSuffix(normalizedPath, "/"+suffix) || normalizedPath == suffix {
					return true
				}
				if matchGlobPath(normalizedPath, suffix) {
					return true
				}
			}
			continue
		}

		if strings.Contains(pattern, "/") {
			// Pattern applies to full path
			if matched, _ := filepath.Match(pattern, normalizedPath); matched {
				return true
			}
			if strings.HasSuffix(normalizedPath, "/"+pattern) {
				return true
			}
		} else if matchGlob(baseName, pattern) {
			return true
		}
	}

	return false
}

// matchGlob performs simple glob matching on a single path component
func matchGlob(name, pattern string) bool {
	matched, _ := filepath.Match(pattern, name)
	return matched
}

// matchGlobPath checks if any component of the path matches the pattern
func matchGlobPath(path, pattern string) bool {
	for _, part := range strings.Split(path, "/") {
		if matchGlob(part, pattern) {
			return true
		}
	}
	return false
}
