package chunker

import (
	"regexp"
	"strings"
)

// Patterns that mark a chunk as template filler rather than real
// knowledge. Indexing these poisons retrieval: a placeholder chunk can
// outrank a genuine answer.
var poisonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)lorem ipsum`),
	regexp.MustCompile(`(?i)^\[[^\]]*(?:todo|tbd|placeholder|fixme|insert|xxx)[^\]]*\]$`),
	regexp.MustCompile(`(?i)^(?:n/?a|tbd|none|coming soon|under construction)[.!]?$`),
	regexp.MustCompile(`(?i)^this is (?:a |an )?(?:sample|test|example|placeholder)`),
}

// FilterPoison drops chunks that are too short to mean anything or that
// match a poison pattern, re-indexes the survivors, and reports how
// many were discarded.
func FilterPoison(chunks []Chunk) ([]Chunk, int) {
	kept := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if isPoison(c.Text) {
			continue
		}
		kept = append(kept, c)
	}
	discarded := len(chunks) - len(kept)
	return reindex(kept), discarded
}

func isPoison(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 5 {
		return true
	}
	for _, re := range poisonPatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}
