package chunker

import (
	"regexp"
	"sort"
	"strings"
)

var wordRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9'-]+`)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "it": true, "its": true, "they": true, "them": true,
	"their": true, "we": true, "our": true, "you": true, "your": true,
	"not": true, "no": true, "if": true, "then": true, "than": true,
	"so": true, "what": true, "which": true, "who": true, "when": true,
	"where": true, "how": true, "all": true, "each": true, "more": true,
	"most": true, "other": true, "some": true, "such": true, "only": true,
	"also": true, "into": true, "about": true, "there": true, "here": true,
}

// ExtractKeywords picks the most frequent non-stop-words in text, up to
// five. The result feeds the weighted text index so repeated terms in a
// chunk boost its keyword-search rank.
func ExtractKeywords(text string) []string {
	freq := make(map[string]int)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 3 || stopWords[w] {
			continue
		}
		freq[w]++
	}

	type wordCount struct {
		word  string
		count int
	}
	counts := make([]wordCount, 0, len(freq))
	for w, c := range freq {
		if c >= 2 {
			counts = append(counts, wordCount{w, c})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].word < counts[j].word
	})

	var keywords []string
	for _, wc := range counts {
		keywords = append(keywords, wc.word)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}
