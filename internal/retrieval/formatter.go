package retrieval

import (
	"fmt"
	"regexp"
	"strings"

	"rag-chatbot-platform/models"
)

const groundingInstructions = `Answer using ONLY the reference material above. If the references do not contain the answer, say you don't have that information rather than guessing. Never invent prices, addresses, phone numbers, dates, or availability. When a reference includes a page number, you may mention it when citing.`

const linkInstructions = `Some references contain Markdown links. Only share a link when it points to the specific thing the user asked about; do not offer generic navigation links. Keep the Markdown link format intact so the link stays clickable.`

var containsLinkRe = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)

// FormatContext renders retrieved chunks as a labeled reference block
// for the model prompt. Zero chunks format to the empty string, callers
// use that to skip context injection entirely.
func FormatContext(rag *models.RagContext) string {
	if rag == nil || len(rag.Chunks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("REFERENCE MATERIAL:\n\n")

	hasLinks := false
	for i, chunk := range rag.Chunks {
		label := fmt.Sprintf("[Reference %d", i+1)
		if chunk.SourceName != "" {
			label += " — " + chunk.SourceName
		}
		if chunk.Metadata.Page > 0 {
			label += fmt.Sprintf(", page %d", chunk.Metadata.Page)
		}
		label += "]"

		sb.WriteString(label + "\n")
		sb.WriteString(strings.TrimSpace(chunk.Content) + "\n\n")

		if containsLinkRe.MatchString(chunk.Content) {
			hasLinks = true
		}
	}

	sb.WriteString(groundingInstructions)
	if hasLinks {
		sb.WriteString("\n\n" + linkInstructions)
	}
	return sb.String()
}

// AugmentSystemPrompt appends the formatted reference block to a base
// system prompt. An empty context returns the base prompt untouched.
func AugmentSystemPrompt(basePrompt string, rag *models.RagContext) string {
	formatted := FormatContext(rag)
	if formatted == "" {
		return basePrompt
	}
	if strings.TrimSpace(basePrompt) == "" {
		return formatted
	}
	return basePrompt + "\n\n" + formatted
}

// ExtractRagMetadata pulls the citation records out of a retrieval
// result for persistence alongside the chat message.
func ExtractRagMetadata(rag *models.RagContext) []models.RagCitation {
	if rag == nil {
		return nil
	}
	citations := make([]models.RagCitation, 0, len(rag.Chunks))
	for _, chunk := range rag.Chunks {
		citations = append(citations, models.RagCitation{
			SourceID:   chunk.SourceID,
			SourceName: chunk.SourceName,
			ChunkID:    chunk.ChunkID,
			Score:      chunk.Score,
			PageNumber: chunk.Metadata.Page,
		})
	}
	return citations
}
