package models

// ImportDependency is one import statement found in a source file
type ImportDependency struct {
	SourceFile      string `json:"source_file"`
	ImportStatement string `json:"import_statement"`
	ImportedModule  string `json:"imported_module"`
	LineNumber      int    `json:"line_number"`
	IsRelative      bool   `json:"is_relative"`
}

// PathDependency is a string literal that looks like a file path
type PathDependency struct {
	SourceFile     string `json:"source_file"`
	ReferencedPath string `json:"referenced_path"`
	LineNumber     int    `json:"line_number"`
	Context        string `json:"context"`
}

// DependencyGraph is built once per run from a static scan
type DependencyGraph struct {
	Nodes       map[string]FileInfo `json:"nodes"`
	ImportEdges []ImportDependency  `json:"import_edges"`
	PathEdges   []PathDependency    `json:"path_edges"`
}

// NewDependencyGraph creates an empty graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{Nodes: make(map[string]FileInfo)}
}
