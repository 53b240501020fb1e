package txlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "logs", ".reorg_transaction_log.json"), nil)
}

func TestNew(t *testing.T) {
	l := newTestLog(t)

	assert.True(t, strings.HasPrefix(l.ID(), "reorg_"))
	assert.Len(t, l.ID(), len("reorg_20060102_150405"))
	assert.False(t, l.StartTime().IsZero())
	assert.DirExists(t, filepath.Dir(l.Path()))
	assert.Equal(t, Counts{}, l.Count())
}

func TestLogOperationIsDurable(t *testing.T) {
	l := newTestLog(t)

	entry := l.LogOperation(models.OpMove, "app.py", "core/api/app.py", true, "", "abc", "abc")
	assert.Equal(t, models.OpMove, entry.Operation)
	assert.False(t, entry.Timestamp.IsZero())

	l.LogOperation(models.OpLink, "app.py", "core/api/app.py", false, "exists", "", "")

	// Without Flush the journal alone must recover both entries
	loaded, err := Load(l.Path(), nil)
	require.NoError(t, err)
	assert.Equal(t, l.ID(), loaded.ID())
	require.Len(t, loaded.Entries(), 2)
	assert.Equal(t, "exists", loaded.Entries()[1].ErrorMessage)
}

func TestFlushDocumentShape(t *testing.T) {
	l := newTestLog(t)
	l.LogOperation(models.OpDelete, "old.txt", "", true, "", "", "")
	require.NoError(t, l.Flush())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, l.ID(), raw["reorganization_id"])
	assert.NotEmpty(t, raw["start_time"])

	ops := raw["operations"].([]interface{})
	require.Len(t, ops, 1)
	op := ops[0].(map[string]interface{})
	for _, key := range []string{"timestamp", "operation", "source", "destination", "success", "error_message", "checksum_before", "checksum_after"} {
		assert.Contains(t, op, key)
	}
	assert.Nil(t, op["destination"])
	assert.Nil(t, op["error_message"])
	assert.Equal(t, "delete", op["operation"])

	_, err = os.Stat(l.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not remain")
}

func TestEmptyDocument(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Flush())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operations": []`)
}

func TestCloseRemovesJournal(t *testing.T) {
	l := newTestLog(t)
	l.LogOperation(models.OpMove, "a", "b", true, "", "", "")
	require.FileExists(t, l.JournalPath())

	require.NoError(t, l.Close())
	assert.NoFileExists(t, l.JournalPath())

	loaded, err := Load(l.Path(), nil)
	require.NoError(t, err)
	assert.Len(t, loaded.Entries(), 1)
}

func TestLoad(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "none.json"), nil)
		assert.ErrorIs(t, err, models.ErrFileOperation)
	})

	t.Run("Corrupt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
		_, err := Load(path, nil)
		assert.ErrorIs(t, err, models.ErrFileOperation)
	})

	t.Run("NaiveTimestamps", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "log.json")
		doc := `{"reorganization_id": "reorg_20240101_120000", "start_time": "2024-01-01T12:00:00.123456",
"operations": [{"timestamp": "2024-01-01T12:00:01.5", "operation": "move", "source": "a.py", "destination": "b/a.py",
"success": true, "error_message": null, "checksum_before": "x", "checksum_after": "x"}]}`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

		l, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "reorg_20240101_120000", l.ID())
		assert.Equal(t, 2024, l.StartTime().Year())
		require.Len(t, l.Entries(), 1)
		assert.Equal(t, "b/a.py", l.Entries()[0].Destination)
	})

	t.Run("JournalWithTornLine", func(t *testing.T) {
		l := newTestLog(t)
		l.LogOperation(models.OpMove, "a", "b", true, "", "", "")
		l.LogOperation(models.OpMove, "c", "d", true, "", "", "")
		require.NoError(t, l.Flush())
		l.LogOperation(models.OpLink, "a", "b", true, "", "", "")

		f, err := os.OpenFile(l.JournalPath(), os.O_APPEND|os.O_WRONLY, 0644)
		require.NoError(t, err)
		_, err = f.WriteString(`{"timestamp": "2024-01`)
		require.NoError(t, err)
		f.Close()

		loaded, err := Load(l.Path(), nil)
		require.NoError(t, err)
		assert.Len(t, loaded.Entries(), 3, "journal has more entries than the flushed document")
	})
}

func TestQueries(t *testing.T) {
	l := newTestLog(t)
	l.LogOperation(models.OpMove, "a.py", "core/a.py", true, "", "1", "1")
	l.LogOperation(models.OpMove, "b.py", "core/b.py", false, "checksum mismatch", "1", "2")
	l.LogOperation(models.OpLink, "a.py", "core/a.py", true, "", "", "")
	l.LogOperation(models.OpDelete, "tmp.bak", "", true, "", "", "")

	assert.Len(t, l.Operations("", false), 4)
	assert.Len(t, l.Operations(models.OpMove, false), 2)
	assert.Len(t, l.Operations(models.OpMove, true), 1)
	assert.Len(t, l.Failed(), 1)
	assert.Len(t, l.ForFile("core/a.py"), 2)
	assert.Len(t, l.ForFile("tmp.bak"), 1)

	rev := l.Reverse()
	require.Len(t, rev, 4)
	assert.Equal(t, models.OpDelete, rev[0].Operation)
	assert.Equal(t, "a.py", rev[3].Source)

	assert.Equal(t, Counts{Total: 4, Move: 2, Link: 1, Delete: 1, Success: 3, Failed: 1}, l.Count())

	summary := l.Summary()
	assert.Contains(t, summary, "Total operations: 4")
	assert.Contains(t, summary, "  - Move: 2")
	assert.Contains(t, summary, "## Failed Operations")
	assert.Contains(t, summary, "  - move: b.py (checksum mismatch)")

	l.Clear()
	assert.Equal(t, 0, l.Count().Total)
	loaded, err := Load(l.Path(), nil)
	require.NoError(t, err)
	assert.Empty(t, loaded.Entries())
}

func TestCloseEmptyLogWritesNothing(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Close())

	assert.NoFileExists(t, l.Path())
	assert.NoFileExists(t, l.JournalPath())
}

func TestReusedPathKeepsPreviousLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".reorg_transaction_log.json")

	first := New(path, nil)
	first.LogOperation(models.OpMove, "app.py", "core/api/app.py", true, "", "1", "1")
	first.LogOperation(models.OpLink, "app.py", "core/api/app.py", true, "", "", "")
	require.NoError(t, first.Close())

	t.Run("EmptyRunLeavesLedger", func(t *testing.T) {
		require.NoError(t, New(path, nil).Close())

		loaded, err := Load(path, nil)
		require.NoError(t, err)
		assert.Len(t, loaded.Entries(), 2)
	})

	t.Run("NextRunArchivesLedger", func(t *testing.T) {
		second := New(path, nil)
		second.LogOperation(models.OpMove, "README.md", "docs/user/README.md", true, "", "2", "2")
		require.NoError(t, second.Close())

		current, err := Load(path, nil)
		require.NoError(t, err)
		require.Len(t, current.Entries(), 1)
		assert.Equal(t, "README.md", current.Entries()[0].Source)

		archived, err := Load(ArchivePath(path, first.ID()), nil)
		require.NoError(t, err)
		assert.Equal(t, first.ID(), archived.ID())
		assert.Len(t, archived.Entries(), 2)
	})

	t.Run("ArchiveNameTaken", func(t *testing.T) {
		third := New(path, nil)
		third.LogOperation(models.OpDelete, "old.txt", "", true, "", "", "")
		require.NoError(t, third.Close())

		matches, err := filepath.Glob(path + ".*")
		require.NoError(t, err)
		assert.Len(t, matches, 2, "each earlier ledger keeps its own archive")
	})
}

func TestUnreadableLedgerIsNotReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".reorg_transaction_log.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	l := New(path, nil)
	l.LogOperation(models.OpMove, "a", "b", true, "", "", "")
	assert.Error(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}
