// Package classify assigns files to target categories
package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
)

// Classifier maps files to categories using an ordered rule table
type Classifier struct {
	rules     []CategoryRules
	threshold float64
	logger    logging.Logger
}

// DuplicateGroup is a set of files with near-identical names
// The first file keeps its category
type DuplicateGroup struct {
	Files      []models.FileInfo
	Similarity float64
}

// New creates a classifier with the default rules
// A threshold outside (0, 1] falls back to the default
func New(threshold float64, logger logging.Logger) *Classifier {
	if threshold <= 0 || threshold > 1 {
		threshold = models.DefaultSimilarityThreshold
	}
	return &Classifier{
		rules:     DefaultRules(),
		threshold: threshold,
		logger:    logging.OrNull(logger).WithFields(logging.Fields{"component": "classifier"}),
	}
}

// ClassifyFile returns the first category whose rules match f
func (c *Classifier) ClassifyFile(f models.FileInfo) models.FileCategory {
	for _, cr := range c.rules {
		for _, rule := range cr.Rules {
			if rule.Matches(f) {
				return cr.Category
			}
		}
	}
	return models.CategoryUnknown
}

// ClassifyBatch classifies files and moves all but the first file of each
// duplicate group into the duplicate category
func (c *Classifier) ClassifyBatch(files []models.FileInfo) map[models.FileCategory][]models.FileInfo {
	duplicates := make(map[string]bool)
	groups := c.DetectDuplicates(files)
	for _, g := range groups {
		for _, f := range g.Files[1:] {
			duplicates[f.Path] = true
		}
	}

	classified := make(map[models.FileCategory][]models.FileInfo)
	for _, f := range files {
		category := c.ClassifyFile(f)
		if duplicates[f.Path] {
			category = models.CategoryDuplicate
		}
		classified[category] = append(classified[category], f)
	}

	c.logger.Debug(context.Background(), "Classification complete", logging.Fields{
		"files":            len(files),
		"duplicate_groups": len(groups),
	})
	return classified
}

// DetectDuplicates groups files whose name stems are more similar than the threshold
// Groups form greedily in input order and a file joins at most one group
func (c *Classifier) DetectDuplicates(files []models.FileInfo) []DuplicateGroup {
	var groups []DuplicateGroup
	processed := make(map[string]bool)

	for i, first := range files {
		if processed[first.Path] {
			continue
		}

		group := []models.FileInfo{first}
		for _, other := range files[i+1:] {
			if processed[other.Path] {
				continue
			}
			if NameSimilarity(first.Name, other.Name) > c.threshold {
				group = append(group, other)
				processed[other.Path] = true
			}
		}

		if len(group) > 1 {
			processed[first.Path] = true
			groups = append(groups, DuplicateGroup{
				Files:      group,
				Similarity: NameSimilarity(group[0].Name, group[1].Name),
			})
		}
	}

	return groups
}

// Report renders a Markdown listing of classified files per category
func Report(classified map[models.FileCategory][]models.FileInfo) string {
	var b strings.Builder
	b.WriteString("# File Classification Report\n\n")

	total := 0
	for _, files := range classified {
		total += len(files)
	}
	fmt.Fprintf(&b, "Total files: %d\n", total)

	categories := make([]models.FileCategory, 0, len(classified))
	for cat := range classified {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, cat := range categories {
		files := append([]models.FileInfo(nil), classified[cat]...)
		if len(files) == 0 {
			continue
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

		fmt.Fprintf(&b, "\n## %s (%d files)\n", strings.ToUpper(string(cat)), len(files))
		fmt.Fprintf(&b, "Target: %s\n\n", CategoryDir(cat))
		for _, f := range files {
			fmt.Fprintf(&b, "  - %s (%.1f KB)\n", f.Path, float64(f.Size)/1024)
		}
	}

	return b.String()
}
