package platform

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"
)

func TestRelativeTo(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "project")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"Inside", filepath.Join(root, "core", "api", "app.py"), "core/api/app.py"},
		{"AlreadyRelative", "docs/user/README.md", "docs/user/README.md"},
		{"Root", root, "."},
		{"Outside", filepath.Join(string(filepath.Separator), "tmp", "x.py"), filepath.Join(string(filepath.Separator), "tmp", "x.py")},
		{"SiblingPrefix", root + "_backup" + string(filepath.Separator) + "a.py", root + "_backup" + string(filepath.Separator) + "a.py"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTo(root, tt.path); got != tt.want {
				t.Errorf("RelativeTo(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "project")
	if !IsWithin(root, filepath.Join(root, "a.py")) {
		t.Error("file under root should be within")
	}
	if IsWithin(root, filepath.Join(root, "..", "other", "a.py")) {
		t.Error("file in sibling should not be within")
	}
}

func TestIsSymlinkPrivilegeError(t *testing.T) {
	if IsSymlinkPrivilegeError(nil) {
		t.Error("nil is not a privilege error")
	}
	if runtime.GOOS != "windows" && IsSymlinkPrivilegeError(errors.New("permission denied")) {
		t.Error("only Windows reports symlink privilege errors")
	}
	if SymlinkHint() == "" {
		t.Error("SymlinkHint() should not be empty")
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath(""); err == nil {
		t.Error("empty path should be invalid")
	}
	if err := ValidatePath("project"); err != nil {
		t.Errorf("ValidatePath() error = %v", err)
	}
}
