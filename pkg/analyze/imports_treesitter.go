//go:build cgo

package analyze

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// SyntaxChecking reports whether unparsable files are detected and skipped
const SyntaxChecking = true

// parseImports walks the Python syntax tree and collects every import in source order
func parseImports(ctx context.Context, src []byte) ([]importRef, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return nil, errSyntax
	}

	var refs []importRef
	walkImports(root, src, &refs)
	return refs, nil
}

func walkImports(node *sitter.Node, src []byte, refs *[]importRef) {
	switch node.Type() {
	case "import_statement":
		line := int(node.StartPoint().Row) + 1
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if name := nameOf(node.NamedChild(i), src); name != "" {
				*refs = append(*refs, plainImport(name, line))
			}
		}
		return

	case "import_from_statement", "future_import_statement":
		collectFromImport(node, src, refs)
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkImports(node.NamedChild(i), src, refs)
	}
}

func collectFromImport(node *sitter.Node, src []byte, refs *[]importRef) {
	line := int(node.StartPoint().Row) + 1

	dots := 0
	module := "__future__"
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode != nil {
		module = ""
		if moduleNode.Type() == "relative_import" {
			for i := 0; i < int(moduleNode.NamedChildCount()); i++ {
				child := moduleNode.NamedChild(i)
				switch child.Type() {
				case "import_prefix":
					dots = strings.Count(child.Content(src), ".")
				case "dotted_name":
					module = compact(child.Content(src))
				}
			}
		} else {
			module = compact(moduleNode.Content(src))
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}

		name := ""
		switch child.Type() {
		case "wildcard_import":
			name = "*"
		case "dotted_name", "aliased_import":
			name = nameOf(child, src)
		}
		if name != "" {
			*refs = append(*refs, fromImport(dots, module, name, line))
		}
	}
}

// nameOf returns the imported dotted name, dropping any alias
func nameOf(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "dotted_name":
		return compact(node.Content(src))
	case "aliased_import":
		if name := node.ChildByFieldName("name"); name != nil {
			return compact(name.Content(src))
		}
	}
	return ""
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
