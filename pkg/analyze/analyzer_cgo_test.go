//go:build cgo

package analyze

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeImportsSyntaxError(t *testing.T) {
	root := writeProject(t, map[string]string{"broken.py": "import os\ndef f(:\n    pass\n"})
	a := New(root, nil, nil)

	assert.True(t, SyntaxChecking)
	assert.Empty(t, a.AnalyzeImports(context.Background(), "broken.py"))
}

func TestAnalyzeImportsFuture(t *testing.T) {
	root := writeProject(t, map[string]string{"f.py": "from __future__ import annotations\n"})
	a := New(root, nil, nil)

	deps := a.AnalyzeImports(context.Background(), "f.py")
	if assert.Len(t, deps, 1) {
		assert.Equal(t, "from __future__ import annotations", deps[0].ImportStatement)
		assert.Equal(t, "__future__", deps[0].ImportedModule)
	}
}
