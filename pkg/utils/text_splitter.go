package utils

// SplitText splits a long string into chunks of approximately 'chunkSize'
// characters with an 'overlap' to preserve context at boundaries. Where a
// paragraph break falls near the cut point, the chunk ends there instead
// of mid-sentence.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	i := 0
	for i < totalLen {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		} else if cut := breakNear(runes, i, end); cut > i {
			end = cut
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}

		// Advance from the actual cut so no text is skipped.
		next := end - overlap
		if next <= i {
			next = i + step
		}
		i = next
	}

	return chunks
}

// breakNear looks backwards from 'end' for a paragraph break within the
// last tenth of the chunk. Returns the position just past the break, or
// 'end' unchanged when none is close enough. The scan stays in rune
// positions; byte offsets would drift on multi-byte text.
func breakNear(runes []rune, start, end int) int {
	window := (end - start) / 10
	for i := end - 2; i >= end-window && i >= start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	return end
}
