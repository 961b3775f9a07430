package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spilist/tokscale/internal/model"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestScanFindsSourceFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("CODEX_HOME", "")

	touch(t, filepath.Join(home, ".claude", "projects", "proj", "conversation.jsonl"))
	touch(t, filepath.Join(home, ".claude", "projects", "proj", "notes.txt"))
	touch(t, filepath.Join(home, ".codex", "sessions", "2025", "session.jsonl"))
	touch(t, filepath.Join(home, ".local", "share", "opencode", "storage", "message", "ses", "msg.json"))
	touch(t, filepath.Join(home, ".gemini", "tmp", "hash", "chats", "session-abc.json"))
	touch(t, filepath.Join(home, ".gemini", "tmp", "hash", "chats", "other.json"))
	touch(t, filepath.Join(home, ".config", "tokscale", "cursor-cache", "usage.csv"))

	found := Scan(home, model.AllSources())

	assert.Len(t, found[model.SourceClaude], 1)
	assert.Len(t, found[model.SourceCodex], 1)
	assert.Len(t, found[model.SourceOpenCode], 1)
	assert.Len(t, found[model.SourceGemini], 1, "only session-*.json files count")
	assert.Len(t, found[model.SourceCursor], 1)
}

func TestScanMissingDirsYieldNoFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("CODEX_HOME", "")

	found := Scan(home, model.AllSources())
	for source, files := range found {
		assert.Empty(t, files, "source %s", source)
	}
}

func TestScanHonorsCodexHome(t *testing.T) {
	home := t.TempDir()
	codexHome := t.TempDir()
	t.Setenv("CODEX_HOME", codexHome)

	touch(t, filepath.Join(codexHome, "sessions", "session.jsonl"))

	found := Scan(home, []model.Source{model.SourceCodex})
	assert.Len(t, found[model.SourceCodex], 1)
}

func TestScanHonorsXDGDataHome(t *testing.T) {
	home := t.TempDir()
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	touch(t, filepath.Join(dataHome, "opencode", "storage", "message", "ses", "msg.json"))

	found := Scan(home, []model.Source{model.SourceOpenCode})
	assert.Len(t, found[model.SourceOpenCode], 1)
}
