//go:build !cgo

package analyze

import (
	"context"
)

// SyntaxChecking reports whether unparsable files are detected and skipped
// Without cgo the tree-sitter grammar is unavailable and the line scanner is used
const SyntaxChecking = false

func parseImports(ctx context.Context, src []byte) ([]importRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parseImportLines(src), nil
}
