package models

// ValidationChecks aggregates post-reorganization checks
type ValidationChecks struct {
	AllLinksValid bool     `json:"all_links_valid"`
	BrokenLinks   []string `json:"broken_links"`

	ImportTestsPassed bool     `json:"import_tests_passed"`
	FailedImports     []string `json:"failed_imports"`
	// ImportsSkipped is set when no import prober was available
	ImportsSkipped bool `json:"imports_skipped"`

	APIStartable       bool `json:"api_startable"`
	ModelLoadable      bool `json:"model_loadable"`
	PredictionsWorking bool `json:"predictions_working"`
	// Functionality holds the outcome of every named probe
	Functionality map[string]bool `json:"functionality"`

	NoMissingFiles bool     `json:"no_missing_files"`
	MissingFiles   []string `json:"missing_files"`
}

// NewValidationChecks returns checks that pass until something fails
func NewValidationChecks() *ValidationChecks {
	return &ValidationChecks{
		AllLinksValid:     true,
		ImportTestsPassed: true,
		NoMissingFiles:    true,
		Functionality:     make(map[string]bool),
	}
}

// AllPassed reports whether links, imports and files all passed
func (c *ValidationChecks) AllPassed() bool {
	return c.AllLinksValid && c.ImportTestsPassed && c.NoMissingFiles
}
