package chunker

import (
	"regexp"

	"rag-chatbot-platform/internal/entity"
)

var headerRe = regexp.MustCompile(`(?m)^#{1,6}\s+.+$`)

// ChunkSections splits Markdown text at headers so each chunk stays
// inside one section. Sections larger than MaxChunkSize get paragraph
// chunking within their own range; small adjacent chunks merge back up
// afterwards.
func ChunkSections(text string, opts Options) []Chunk {
	headers := headerRe.FindAllStringIndex(text, -1)
	if len(headers) == 0 {
		return ChunkParagraphs(text, opts)
	}

	spans := entity.Detect(text)
	var chunks []Chunk

	emit := func(start, end int) {
		for start < end && isSpace(text[start]) {
			start++
		}
		for end > start && isSpace(text[end-1]) {
			end--
		}
		if end-start < opts.MinChunkSize {
			return
		}
		if end-start <= opts.MaxChunkSize {
			chunks = append(chunks, newChunk(text[start:end], start, end, spans, start, end))
			return
		}
		chunks = append(chunks, chunkParagraphsAt(text[start:end], start, opts)...)
	}

	if headers[0][0] > 0 {
		emit(0, headers[0][0])
	}
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		emit(h[0], end)
	}

	return MergeSmall(reindex(chunks), opts.MaxChunkSize)
}
