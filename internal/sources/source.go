// Package sources turns each supported tool's on-disk logs into
// normalized usage events. Parsers are best-effort: malformed lines and
// unreadable files are skipped, never fatal.
package sources

import (
	"github.com/spilist/tokscale/internal/model"
)

// ParseFunc reads one log file and returns the events it contains.
// Unreadable or malformed files yield an empty slice.
type ParseFunc func(path string) []model.UsageEvent

// parsers maps each source to its file parser. Adding a source means
// adding a row here plus its scan paths in scanner.go.
var parsers = map[model.Source]ParseFunc{
	model.SourceClaude:   ParseClaudeFile,
	model.SourceCodex:    ParseCodexFile,
	model.SourceOpenCode: parseOpenCodeEvents,
	model.SourceGemini:   ParseGeminiFile,
	model.SourceCursor:   ParseCursorFile,
}

// ParserFor returns the parser registered for a source.
func ParserFor(source model.Source) (ParseFunc, bool) {
	p, ok := parsers[source]
	return p, ok
}

func parseOpenCodeEvents(path string) []model.UsageEvent {
	event, ok := ParseOpenCodeFile(path)
	if !ok {
		return nil
	}
	return []model.UsageEvent{event}
}
