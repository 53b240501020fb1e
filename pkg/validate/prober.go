package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ImportProber checks whether a dotted module imports cleanly
// Probing executes module top-level code, so it is opt-in
type ImportProber interface {
	ProbeImport(ctx context.Context, module string) error
}

// PythonProber imports modules in a child interpreter with the project root on PYTHONPATH
type PythonProber struct {
	Root        string
	Interpreter string // defaults to python3
}

// NewPythonProber returns a prober for root, or an error when no interpreter is on PATH
func NewPythonProber(root string) (*PythonProber, error) {
	interpreter, err := exec.LookPath("python3")
	if err != nil {
		return nil, fmt.Errorf("python3 not found: %w", err)
	}
	return &PythonProber{Root: root, Interpreter: interpreter}, nil
}

// ProbeImport runs `import module` and reports the interpreter's last stderr line on failure
func (p *PythonProber) ProbeImport(ctx context.Context, module string) error {
	interpreter := p.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}

	cmd := exec.CommandContext(ctx, interpreter, "-c", "import "+module)
	cmd.Dir = p.Root
	cmd.Env = append(os.Environ(), "PYTHONPATH="+p.Root, "PYTHONDONTWRITEBYTECODE=1")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if line := lastLine(stderr.String()); line != "" {
				return errors.New(line)
			}
		}
		return err
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
