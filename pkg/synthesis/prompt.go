package synthesis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"procedure-qa-be/pkg/store"
)

const systemPrompt = `You are an assistant answering questions about administrative procedures.
Answer ONLY from the provided context. If the context does not contain the answer, say so plainly.
Quote exact requirements, fees, and deadlines when the context states them. Do not invent any.`

// buildContext assembles the prompt context within maxChars. The nucleus is
// always included whole; supporting material is appended until the budget
// runs out and truncated at a chunk boundary, never mid-nucleus.
func buildContext(ec *store.ExpandedContext, maxChars int) string {
	var b strings.Builder

	nucleus := fmt.Sprintf("[Primary passage]\n%s\n", ec.Nucleus.Content)
	b.WriteString(nucleus)
	remaining := maxChars - b.Len()

	if ec.FullDocumentText != "" {
		doc := ec.FullDocumentText
		if len(doc) > remaining {
			doc = truncateAtRune(doc, max(remaining, 0))
		}
		if doc != "" {
			b.WriteString("\n[Source document]\n")
			b.WriteString(doc)
			b.WriteString("\n")
		}
		return b.String()
	}

	for _, c := range ec.SupportingChunks {
		section := fmt.Sprintf("\n[Supporting passage %d]\n%s\n", c.ChunkIndex, c.Content)
		if b.Len()+len(section) > maxChars {
			break
		}
		b.WriteString(section)
	}
	return b.String()
}

func buildPrompt(resolvedQuery string, contextText string, lowConfidence bool) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n=== CONTEXT ===\n")
	b.WriteString(contextText)
	b.WriteString("\n=== QUESTION ===\n")
	b.WriteString(resolvedQuery)
	if lowConfidence {
		b.WriteString("\n\nNote: the retrieved context may only partially match the question. State clearly which parts of the question the context does not cover.")
	}
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// truncateAtRune cuts s to at most n bytes, backing off to the nearest
// rune boundary so the prompt never ends in invalid UTF-8.
func truncateAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
