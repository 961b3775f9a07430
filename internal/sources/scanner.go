package sources

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spilist/tokscale/internal/model"
)

// Scan walks each requested source's session directory under home and
// returns the log files found per source. A missing directory means zero
// files, not an error.
func Scan(home string, requested []model.Source) map[model.Source][]string {
	found := make(map[model.Source][]string, len(requested))
	for _, source := range requested {
		found[source] = scanSource(home, source)
	}
	return found
}

func scanSource(home string, source model.Source) []string {
	switch source {
	case model.SourceClaude:
		return collect(filepath.Join(home, ".claude", "projects"), matchExt(".jsonl"))
	case model.SourceCodex:
		return collect(codexSessionsDir(home), matchExt(".jsonl"))
	case model.SourceOpenCode:
		return collect(filepath.Join(dataHome(home), "opencode", "storage", "message"), matchExt(".json"))
	case model.SourceGemini:
		return collect(filepath.Join(home, ".gemini", "tmp"), matchGeminiSession)
	case model.SourceCursor:
		return collect(CursorCacheDir(home), matchExt(".csv"))
	}
	return nil
}

// CursorCacheDir is where synced Cursor usage exports live.
func CursorCacheDir(home string) string {
	return filepath.Join(home, ".config", "tokscale", "cursor-cache")
}

func codexSessionsDir(home string) string {
	if codexHome := os.Getenv("CODEX_HOME"); codexHome != "" {
		return filepath.Join(codexHome, "sessions")
	}
	return filepath.Join(home, ".codex", "sessions")
}

func dataHome(home string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(home, ".local", "share")
}

func collect(root string, match func(name string) bool) []string {
	var files []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

func matchExt(ext string) func(string) bool {
	return func(name string) bool {
		return filepath.Ext(name) == ext
	}
}

// Gemini session files look like chats/session-<id>.json.
func matchGeminiSession(name string) bool {
	return strings.HasPrefix(name, "session-") && filepath.Ext(name) == ".json"
}
