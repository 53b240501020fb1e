package analyze

import (
	"errors"
	"strings"
)

// errSyntax marks a source file the parser rejected
var errSyntax = errors.New("syntax error")

// importRef is one imported name as found in the source
type importRef struct {
	Statement string
	Module    string
	Line      int
	Relative  bool
}

// plainImport formats "import x"
func plainImport(module string, line int) importRef {
	return importRef{
		Statement: "import " + module,
		Module:    module,
		Line:      line,
	}
}

// fromImport formats "from .x import y" for one imported name
func fromImport(dots int, module, name string, line int) importRef {
	prefix := strings.Repeat(".", dots)
	stmt := "from " + prefix + module + " import " + name
	if module == "" {
		stmt = "from " + prefix + " import " + name
	}
	return importRef{
		Statement: stmt,
		Module:    module,
		Line:      line,
		Relative:  dots > 0,
	}
}

// parseImportLines extracts imports with a line scanner
// It understands parenthesized and backslash-continued statements but cannot
// detect syntax errors
func parseImportLines(src []byte) []importRef {
	var refs []importRef

	lines := strings.Split(string(src), "\n")
	inString := ""
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		lineNo := i + 1

		if inString != "" {
			if strings.Contains(line, inString) {
				inString = ""
			}
			continue
		}

		stmt := strings.TrimSpace(stripComment(line))
		if q := openTripleQuote(stmt); q != "" {
			inString = q
			continue
		}

		if !strings.HasPrefix(stmt, "import ") && !strings.HasPrefix(stmt, "from ") {
			continue
		}

		// Join continuation lines into one logical statement
		for (strings.HasSuffix(stmt, "\\") || strings.Count(stmt, "(") > strings.Count(stmt, ")")) && i+1 < len(lines) {
			stmt = strings.TrimSuffix(stmt, "\\") + " " + strings.TrimSpace(stripComment(lines[i+1]))
			i++
		}

		refs = append(refs, parseStatement(stmt, lineNo)...)
	}

	return refs
}

func parseStatement(stmt string, line int) []importRef {
	var refs []importRef

	if rest, ok := strings.CutPrefix(stmt, "import "); ok {
		for _, part := range strings.Split(rest, ",") {
			if name := importedName(part); name != "" {
				refs = append(refs, plainImport(name, line))
			}
		}
		return refs
	}

	rest := strings.TrimPrefix(stmt, "from ")
	source, names, ok := strings.Cut(rest, " import ")
	if !ok {
		// "from . import(x)" has no space before the parenthesis
		source, names, ok = strings.Cut(rest, " import(")
		if !ok {
			return nil
		}
		names = "(" + names
	}

	source = strings.TrimSpace(source)
	dots := len(source) - len(strings.TrimLeft(source, "."))
	module := strings.Join(strings.Fields(source[dots:]), "")

	names = strings.TrimSpace(names)
	names = strings.TrimPrefix(names, "(")
	names = strings.TrimSuffix(names, ")")
	for _, part := range strings.Split(names, ",") {
		if name := importedName(part); name != "" {
			refs = append(refs, fromImport(dots, module, name, line))
		}
	}
	return refs
}

// importedName returns the name of "a.b as c" without its alias
func importedName(part string) string {
	fields := strings.Fields(part)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) >= 3 && fields[len(fields)-2] == "as" {
		fields = fields[:len(fields)-2]
	}
	return strings.Join(fields, "")
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// openTripleQuote returns the delimiter of a docstring left open on this line
func openTripleQuote(stmt string) string {
	for _, q := range []string{`"""`, `'''`} {
		if strings.Count(stmt, q)%2 == 1 {
			return q
		}
	}
	return ""
}
