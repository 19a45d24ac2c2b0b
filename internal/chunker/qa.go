package chunker

import (
	"regexp"
	"strings"

	"rag-chatbot-platform/internal/entity"
)

// qaMarkerRe matches the start of a question in common Q&A layouts:
// "Q:", "Q1:", "Question:", "Question 3.", optionally bolded.
var qaMarkerRe = regexp.MustCompile(`(?mi)^(?:\*\*)?(?:q|question)\s*\d*\s*[:.)]`)

// LooksLikeQA reports whether text carries enough question markers to
// treat it as structured Q&A content.
func LooksLikeQA(text string) bool {
	return len(qaMarkerRe.FindAllStringIndex(text, -1)) >= 2
}

// ChunkQAPairs splits Q&A-structured text so each question and its
// answer land in one atomic chunk, never split regardless of size. Any
// preamble before the first question falls back to paragraph chunking.
func ChunkQAPairs(text string, opts Options) []Chunk {
	markers := qaMarkerRe.FindAllStringIndex(text, -1)
	if len(markers) < 2 {
		return ChunkParagraphs(text, opts)
	}

	spans := entity.Detect(text)
	var chunks []Chunk

	if preamble := strings.TrimSpace(text[:markers[0][0]]); len(preamble) >= opts.MinChunkSize {
		chunks = append(chunks, chunkParagraphsAt(text[:markers[0][0]], 0, opts)...)
	}

	for i, m := range markers {
		start := m[0]
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		pair := strings.TrimSpace(text[start:end])
		if pair == "" {
			continue
		}
		c := newChunk(pair, start, start+len(pair), spans, start, end)
		c.AtomicQA = true
		chunks = append(chunks, c)
	}
	return reindex(chunks)
}
