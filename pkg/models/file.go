package models

import (
	"time"
)

// FileInfo is an immutable snapshot of one file taken during a scan
type FileInfo struct {
	// Path is relative to the project root, using forward slashes
	Path string `json:"path"`

	// Name is the base name of the file
	Name string `json:"name"`

	// Size in bytes
	Size int64 `json:"size"`

	// Extension is lowercased and includes the leading dot
	Extension string `json:"extension"`

	// ModifiedTime is the last modification time
	ModifiedTime time.Time `json:"modified_time"`

	// HasNonASCIIName is set when the name contains a non-ASCII code point
	HasNonASCIIName bool `json:"has_non_ascii_name"`

	// IsExecutable reflects the owner execute bit
	IsExecutable bool `json:"is_executable"`

	// IsSymlink is set for symbolic links, such as links left by an earlier run
	IsSymlink bool `json:"is_symlink"`
}

// FileCategory is the classification assigned to a file
type FileCategory string

const (
	CategoryCoreAPI       FileCategory = "core-api"
	CategoryCoreModel     FileCategory = "core-model"
	CategoryCoreData      FileCategory = "core-data"
	CategoryConfig        FileCategory = "config"
	CategoryDocUser       FileCategory = "doc-user"
	CategoryDocDeployment FileCategory = "doc-deployment"
	CategoryDocTechnical  FileCategory = "doc-technical"
	CategoryDocProject    FileCategory = "doc-project"
	CategoryDevTest       FileCategory = "dev-test"
	CategoryDevScript     FileCategory = "dev-script"
	CategoryDevUtil       FileCategory = "dev-util"
	CategoryDevTemp       FileCategory = "dev-temp"
	CategoryDuplicate     FileCategory = "duplicate"
	CategoryObsolete      FileCategory = "obsolete"
	CategoryUnknown       FileCategory = "unknown"
)

// AllCategories returns every category in classification order
func AllCategories() []FileCategory {
	return []FileCategory{
		CategoryDevTest,
		CategoryCoreAPI,
		CategoryCoreModel,
		CategoryCoreData,
		CategoryConfig,
		CategoryDocUser,
		CategoryDocDeployment,
		CategoryDocTechnical,
		CategoryDocProject,
		CategoryDevScript,
		CategoryDevUtil,
		CategoryDevTemp,
		CategoryDuplicate,
		CategoryObsolete,
		CategoryUnknown,
	}
}

// FileMapping records one relocation decision
type FileMapping struct {
	OldPath  string       `json:"old_path"`
	NewPath  string       `json:"new_path"`
	Category FileCategory `json:"category"`
	LinkPath string       `json:"link_path,omitempty"`
}
