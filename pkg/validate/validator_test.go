package validate

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber fails the modules listed in broken
type fakeProber struct {
	broken map[string]string
	probed []string
}

func (f *fakeProber) ProbeImport(ctx context.Context, module string) error {
	f.probed = append(f.probed, module)
	if msg, ok := f.broken[module]; ok {
		return errors.New(msg)
	}
	return nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func TestValidateLinks(t *testing.T) {
	root := writeTree(t, map[string]string{"core/a.py": "a"})
	require.NoError(t, os.Symlink("core/a.py", filepath.Join(root, "a.py")))

	v, err := New(root)
	require.NoError(t, err)
	assert.True(t, v.ValidateLinks("").AllLinksValid)

	require.NoError(t, os.Symlink("core/missing.py", filepath.Join(root, "b.py")))
	checks := v.ValidateLinks("")
	assert.False(t, checks.AllLinksValid)
	assert.Equal(t, []string{"b.py"}, checks.BrokenLinks)
	assert.False(t, checks.AllPassed())
}

func TestValidateImports(t *testing.T) {
	root := writeTree(t, map[string]string{
		"core/api/app.py":      "",
		"core/api/__init__.py": "",
		"tests/test_app.py":    "",
		"models/predictor.py":  "",
		"venv/lib/site.py":     "",
	})

	t.Run("Skipped", func(t *testing.T) {
		v, err := New(root)
		require.NoError(t, err)
		assert.False(t, v.CanProbeImports())

		checks := v.ValidateImports(context.Background(), nil)
		assert.True(t, checks.ImportsSkipped)
		assert.True(t, checks.ImportTestsPassed)
		assert.Equal(t, true, v.Summary()["imports"].(map[string]interface{})["skipped"])
	})

	t.Run("Discovered", func(t *testing.T) {
		prober := &fakeProber{broken: map[string]string{"models.predictor": "No module named 'numpy'"}}
		v, err := New(root, WithProber(prober))
		require.NoError(t, err)

		checks := v.ValidateImports(context.Background(), nil)
		assert.ElementsMatch(t, []string{"core.api.app", "models.predictor"}, prober.probed)
		assert.False(t, checks.ImportTestsPassed)
		assert.Equal(t, []string{"models.predictor: No module named 'numpy'"}, checks.FailedImports)
	})

	t.Run("Explicit", func(t *testing.T) {
		prober := &fakeProber{}
		v, err := New(root, WithProber(prober))
		require.NoError(t, err)

		checks := v.ValidateImports(context.Background(), []string{"core.api.app"})
		assert.Equal(t, []string{"core.api.app"}, prober.probed)
		assert.True(t, checks.ImportTestsPassed)
		assert.False(t, checks.ImportsSkipped)
	})
}

func TestValidateFileIntegrity(t *testing.T) {
	root := writeTree(t, map[string]string{"docs/user/README.md": "x"})
	v, err := New(root)
	require.NoError(t, err)

	checks := v.ValidateFileIntegrity([]string{"docs/user/README.md", "core/api/app.py"})
	assert.False(t, checks.NoMissingFiles)
	assert.Equal(t, []string{"core/api/app.py"}, checks.MissingFiles)

	checks = v.ValidateFileIntegrity([]string{"docs/user/README.md"})
	assert.True(t, checks.NoMissingFiles)
	assert.Empty(t, checks.MissingFiles)
}

func TestValidateFunctionality(t *testing.T) {
	v, err := New(t.TempDir())
	require.NoError(t, err)

	checks := v.ValidateFunctionality(context.Background(), map[string]Probe{
		ProbeAPIStartable:  func(ctx context.Context) (bool, error) { return true, nil },
		ProbeModelLoadable: func(ctx context.Context) (bool, error) { return false, errors.New("weights missing") },
		ProbePredictionsWorking: func(ctx context.Context) (bool, error) {
			panic("segfault in model")
		},
		"cache_warm": func(ctx context.Context) (bool, error) { return true, nil },
	})

	assert.True(t, checks.APIStartable)
	assert.False(t, checks.ModelLoadable)
	assert.False(t, checks.PredictionsWorking)
	assert.True(t, checks.Functionality["cache_warm"])
	assert.False(t, checks.Functionality[ProbePredictionsWorking])
}

func TestValidateAll(t *testing.T) {
	root := writeTree(t, map[string]string{"core/a.py": "a"})
	require.NoError(t, os.Symlink("core/a.py", filepath.Join(root, "a.py")))

	prober := &fakeProber{}
	v, err := New(root, WithProber(prober))
	require.NoError(t, err)

	checks := v.ValidateAll(context.Background(), Options{
		ExpectedFiles: []string{"core/a.py"},
	})
	assert.True(t, checks.AllPassed())
	assert.Empty(t, prober.probed, "imports are only probed on request")

	summary := v.Summary()
	assert.Equal(t, true, summary["all_passed"])
	links := summary["links"].(map[string]interface{})
	assert.Equal(t, 0, links["broken_count"])

	report := Report(checks)
	assert.Contains(t, report, "✅ PASSED")
	assert.Contains(t, report, "All symbolic links are valid")
}

func TestPythonProber(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	root := writeTree(t, map[string]string{
		"good.py": "x = 1\n",
		"bad.py":  "import definitely_not_a_module_xyz\n",
	})
	p, err := NewPythonProber(root)
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, p.ProbeImport(ctx, "good"))

	err = p.ProbeImport(ctx, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definitely_not_a_module_xyz")
}
