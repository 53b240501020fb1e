package classify

import (
	"regexp"
	"strings"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

// Rule is a set of predicates on a file; it matches when any present predicate matches
type Rule struct {
	// Name matches the exact base name
	Name string
	// NamePattern matches the base name
	NamePattern *regexp.Regexp
	// PathPattern matches the root-relative path
	PathPattern *regexp.Regexp
	// PathContains matches a substring of the root-relative path
	PathContains string
	// Extension matches the lowercased extension including the dot
	Extension string
}

// Matches reports whether any predicate of the rule holds for f
func (r Rule) Matches(f models.FileInfo) bool {
	if r.Name != "" && f.Name == r.Name {
		return true
	}
	if r.NamePattern != nil && r.NamePattern.MatchString(f.Name) {
		return true
	}
	if r.PathPattern != nil && r.PathPattern.MatchString(f.Path) {
		return true
	}
	if r.PathContains != "" && strings.Contains(f.Path, r.PathContains) {
		return true
	}
	if r.Extension != "" && f.Extension == r.Extension {
		return true
	}
	return false
}

// CategoryRules binds a category to the rules that select it
type CategoryRules struct {
	Category models.FileCategory
	Rules    []Rule
}

func names(ns ...string) []Rule {
	rules := make([]Rule, len(ns))
	for i, n := range ns {
		rules[i] = Rule{Name: n}
	}
	return rules
}

func namePattern(p string) Rule { return Rule{NamePattern: regexp.MustCompile(p)} }
func pathPattern(p string) Rule { return Rule{PathPattern: regexp.MustCompile(p)} }
func ext(e string) Rule         { return Rule{Extension: e} }

// DefaultRules returns the rule table in evaluation order
// Test files come first so that tests/api/test_x.py is a test, not API code
func DefaultRules() []CategoryRules {
	return []CategoryRules{
		{models.CategoryDevTest, []Rule{
			namePattern(`^test_.*\.py$`),
			pathPattern(`^tests/.*\.py$`),
		}},
		{models.CategoryCoreAPI, []Rule{
			pathPattern(`^api/.*\.py$`),
			{NamePattern: regexp.MustCompile(`^app\.py$`), PathContains: "api"},
		}},
		{models.CategoryCoreModel, append(names(
			"predictor.py",
			"enhanced_predictor.py",
			"domain_priors.py",
			"feature_contribution_fast.py",
			"correlation_analyzer.py",
			"version_manager.py",
		), pathPattern(`^models/.*\.py$`))},
		{models.CategoryCoreData, []Rule{
			pathPattern(`^data/processed/.*\.csv$`),
			{Name: "hiv_data_processed.csv"},
		}},
		{models.CategoryConfig, append(names(
			"requirements.txt",
			"Dockerfile",
			"docker-compose.yml",
			".dockerignore",
		), ext(".yml"), ext(".yaml"), ext(".toml"))},
		{models.CategoryDocUser, names(
			"README.md",
			"USER_MANUAL.md",
			"API_DOCUMENTATION.md",
			"API_USAGE_EXAMPLES.md",
		)},
		{models.CategoryDocDeployment, append([]Rule{
			namePattern(`^DEPLOYMENT.*\.md$`),
			namePattern(`.*CHECKLIST\.md$`),
		}, names("LOCAL_DEMO_GUIDE.md", "SUBMISSION_GUIDE.md", "WHAT_TO_SUBMIT.md")...)},
		{models.CategoryDocTechnical, append(
			names("AI_INNOVATION.md", "IMPLEMENTATION_LOG.md"),
			pathPattern(`^docs/.*\.md$`),
		)},
		{models.CategoryDocProject, append(
			[]Rule{namePattern(`^PROJECT.*\.md$`)},
			names("CORE_DELIVERY_FILES.md")...,
		)},
		{models.CategoryDevScript, []Rule{
			namePattern(`^(evaluate|visualize|check|verify|generate|run|optimize)_.*\.py$`),
			ext(".sh"),
		}},
		{models.CategoryDevUtil, []Rule{
			pathPattern(`^utils/.*\.py$`),
		}},
		{models.CategoryDevTemp, []Rule{
			namePattern(`^fix_.*\.py$`),
			namePattern(`\p{Han}`),
			namePattern(`^temp_.*`),
			namePattern(`.*_temp\..*`),
			ext(".tmp"),
			ext(".bak"),
		}},
		// Duplicates are assigned by ClassifyBatch
		{models.CategoryDuplicate, nil},
		{models.CategoryObsolete, []Rule{
			pathPattern(`^docs_for_review/.*`),
			pathPattern(`^deployment/.*`),
		}},
	}
}

var categoryDirs = map[models.FileCategory]string{
	models.CategoryCoreAPI:       "core/api",
	models.CategoryCoreModel:     "core/models",
	models.CategoryCoreData:      "core/data/processed",
	models.CategoryConfig:        "config",
	models.CategoryDocUser:       "docs/user",
	models.CategoryDocDeployment: "docs/deployment",
	models.CategoryDocTechnical:  "docs/technical",
	models.CategoryDocProject:    "docs/project",
	models.CategoryDevTest:       "dev/tests",
	models.CategoryDevScript:     "dev/scripts",
	models.CategoryDevUtil:       "dev/utils",
	models.CategoryDevTemp:       "dev/temp",
	models.CategoryDuplicate:     "dev/temp/duplicates",
	models.CategoryObsolete:      "dev/temp/obsolete",
	models.CategoryUnknown:       "dev/temp/unknown",
}

// CategoryDir returns the project-relative target directory for a category
func CategoryDir(category models.FileCategory) string {
	if dir, ok := categoryDirs[category]; ok {
		return dir
	}
	return categoryDirs[models.CategoryUnknown]
}

// CategoryDirs returns every target directory in category order
func CategoryDirs() []string {
	var dirs []string
	for _, c := range models.AllCategories() {
		dirs = append(dirs, CategoryDir(c))
	}
	return dirs
}
