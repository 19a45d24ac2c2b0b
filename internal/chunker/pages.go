package chunker

import "strings"

// ChunkPages chunks form-feed-delimited text page by page. Chunks never
// cross a page boundary, carry their 1-based page number, and keep
// offsets relative to the whole document.
func ChunkPages(text string, opts Options) []Chunk {
	if !strings.Contains(text, "\f") {
		return ChunkParagraphs(text, opts)
	}

	var chunks []Chunk
	base := 0
	for pageNum, page := range strings.Split(text, "\f") {
		for _, c := range chunkParagraphsAt(page, base, opts) {
			c.Page = pageNum + 1
			chunks = append(chunks, c)
		}
		base += len(page) + 1
	}
	return reindex(chunks)
}
