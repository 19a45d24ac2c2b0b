package chunker

import (
	"regexp"
	"strings"

	"rag-chatbot-platform/internal/entity"

	"github.com/google/uuid"
)

// Options controls how text gets segmented into chunks.
type Options struct {
	MaxChunkSize     int
	ChunkOverlap     int
	MinChunkSize     int
	PreserveEntities bool
	EntityPadding    int
}

// DefaultOptions returns the tuned defaults used for ingestion.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:     1000,
		ChunkOverlap:     200,
		MinChunkSize:     50,
		PreserveEntities: true,
		EntityPadding:    50,
	}
}

// Chunk is one unit of indexed content with its provenance inside the
// source document.
type Chunk struct {
	ChunkID     string
	Text        string
	Index       int
	StartOffset int
	EndOffset   int
	Page        int
	EntityTypes []string
	AtomicQA    bool
	Keywords    []string
}

var (
	paragraphBreakRe = regexp.MustCompile(`\n\s*\n`)
	sentenceEndRe    = regexp.MustCompile(`[.!?]+\s+`)
)

// segment is a paragraph with its offsets in the original text.
type segment struct {
	text  string
	start int
	end   int
}

// ChunkParagraphs splits text at paragraph breaks and accumulates
// paragraphs into chunks bounded by MaxChunkSize. Splits never land
// within EntityPadding characters of a detected entity, so a chunk may
// exceed the bound when the alternative would cut an entity in half.
func ChunkParagraphs(text string, opts Options) []Chunk {
	return chunkParagraphsAt(text, 0, opts)
}

func chunkParagraphsAt(text string, base int, opts Options) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var spans []entity.Span
	if opts.PreserveEntities {
		spans = entity.Detect(text)
	}

	var chunks []Chunk
	var current []segment
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		start := current[0].start
		end := current[len(current)-1].end
		chunks = append(chunks, newChunk(text[start:end], base+start, base+end, spans, start, end))
		current = current[:0]
		currentLen = 0
	}

	for _, seg := range splitParagraphs(text) {
		if len(seg.text) > opts.MaxChunkSize {
			flush()
			for _, sub := range splitLongParagraph(seg, spans, opts) {
				chunks = append(chunks, newChunk(text[sub.start:sub.end], base+sub.start, base+sub.end, spans, sub.start, sub.end))
			}
			continue
		}

		projected := currentLen + len(seg.text)
		if currentLen > 0 {
			projected += 2
		}
		if projected > opts.MaxChunkSize && currentLen >= opts.MinChunkSize {
			// Flushing splits at the end of the accumulated run. Keep
			// accumulating if an entity straddles that boundary.
			boundary := current[len(current)-1].end
			if !opts.PreserveEntities || entity.SafeSplit(spans, boundary, opts.EntityPadding) {
				flush()
			}
		}
		current = append(current, seg)
		currentLen = projected
		if len(current) == 1 {
			currentLen = len(seg.text)
		}
	}
	flush()

	kept := chunks[:0]
	for _, c := range chunks {
		if len(strings.TrimSpace(c.Text)) >= opts.MinChunkSize {
			kept = append(kept, c)
		}
	}
	return reindex(kept)
}

// splitLongParagraph breaks one oversized paragraph at sentence
// boundaries that are clear of entities. A paragraph with no safe
// sentence break comes back whole.
func splitLongParagraph(seg segment, spans []entity.Span, opts Options) []segment {
	var breaks []int
	for _, loc := range sentenceEndRe.FindAllStringIndex(seg.text, -1) {
		pos := seg.start + loc[1]
		if !opts.PreserveEntities || entity.SafeSplit(spans, pos, opts.EntityPadding) {
			breaks = append(breaks, pos)
		}
	}
	if len(breaks) == 0 {
		return []segment{seg}
	}

	// Cut at the last safe break that keeps the piece within bounds;
	// when no break fits, take the first one past the limit.
	var out []segment
	start := seg.start
	lastBreak := -1
	for _, b := range breaks {
		if b-start > opts.MaxChunkSize {
			if lastBreak > start {
				out = append(out, segment{start: start, end: lastBreak})
				start = lastBreak
			} else {
				out = append(out, segment{start: start, end: b})
				start = b
			}
		}
		lastBreak = b
	}
	if start < seg.end {
		out = append(out, segment{start: start, end: seg.end})
	}
	return out
}

func splitParagraphs(text string) []segment {
	var segs []segment
	prev := 0
	for _, loc := range paragraphBreakRe.FindAllStringIndex(text, -1) {
		segs = appendSegment(segs, text, prev, loc[0])
		prev = loc[1]
	}
	return appendSegment(segs, text, prev, len(text))
}

// appendSegment trims surrounding whitespace while keeping offsets
// anchored to the original text.
func appendSegment(segs []segment, text string, start, end int) []segment {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	if start == end {
		return segs
	}
	return append(segs, segment{text: text[start:end], start: start, end: end})
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func newChunk(text string, start, end int, spans []entity.Span, localStart, localEnd int) Chunk {
	return Chunk{
		ChunkID:     uuid.New().String(),
		Text:        text,
		StartOffset: start,
		EndOffset:   end,
		EntityTypes: entity.TypesIn(spans, localStart, localEnd),
		Keywords:    ExtractKeywords(text),
	}
}

// MergeSmall combines adjacent chunks whose joined length stays within
// maxSize. QA chunks never merge; they stay atomic. Running the pass
// again on its own output changes nothing.
func MergeSmall(chunks []Chunk, maxSize int) []Chunk {
	if len(chunks) < 2 {
		return chunks
	}

	merged := []Chunk{chunks[0]}
	for _, next := range chunks[1:] {
		last := &merged[len(merged)-1]
		if !last.AtomicQA && !next.AtomicQA &&
			last.Page == next.Page &&
			len(last.Text)+2+len(next.Text) <= maxSize {
			last.Text = last.Text + "\n\n" + next.Text
			last.EndOffset = next.EndOffset
			last.EntityTypes = unionStrings(last.EntityTypes, next.EntityTypes)
			last.Keywords = ExtractKeywords(last.Text)
			continue
		}
		merged = append(merged, next)
	}
	return reindex(merged)
}

// InjectOverlap prepends the tail of each chunk's predecessor, clipped
// to a sentence boundary, so adjacent chunks share context. Offsets
// keep describing the chunk's own range.
func InjectOverlap(chunks []Chunk, overlap int) []Chunk {
	if overlap <= 0 {
		return chunks
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].AtomicQA || chunks[i].Page != chunks[i-1].Page {
			continue
		}
		tail := sentenceTail(chunks[i-1].Text, overlap)
		if tail != "" {
			chunks[i].Text = tail + "\n\n" + chunks[i].Text
		}
	}
	return chunks
}

// sentenceTail returns the trailing sentences of text fitting within
// limit characters.
func sentenceTail(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	window := text[len(text)-limit:]
	if loc := sentenceEndRe.FindStringIndex(window); loc != nil {
		return strings.TrimSpace(window[loc[1]:])
	}
	return ""
}

func reindex(chunks []Chunk) []Chunk {
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			a = append(a, s)
		}
	}
	return a
}
