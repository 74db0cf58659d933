package services

import (
	"fmt"
	"strings"

	"github.com/machirag/server/models"
)

// sentenceTerminators end a sentence unit. Both Japanese and ASCII
// terminators count.
var sentenceTerminators = map[rune]bool{
	'。': true,
	'！': true,
	'？': true,
	'!':  true,
	'?':  true,
}

// SplitSentences splits text into sentence-terminated spans. A trailing span
// without a terminator is kept as its own unit. Units are trimmed and
// whitespace-only units are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current []rune
	for _, r := range text {
		current = append(current, r)
		if sentenceTerminators[r] {
			if s := strings.TrimSpace(string(current)); s != "" {
				sentences = append(sentences, s)
			}
			current = current[:0]
		}
	}
	if s := strings.TrimSpace(string(current)); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// ChunkText accumulates sentence units into chunks of at most maxSize
// characters (runes). A single unit longer than maxSize is force-split into
// maxSize-sized slices, so no returned chunk ever exceeds maxSize. Empty
// input yields an empty result. Order is preserved.
func ChunkText(text string, maxSize int) []string {
	if maxSize <= 0 {
		return nil
	}

	var chunks []string
	var buf []string
	bufLen := 0

	flush := func() {
		if len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, "\n"))
			buf = buf[:0]
			bufLen = 0
		}
	}

	for _, sentence := range SplitSentences(text) {
		runes := []rune(sentence)
		size := len(runes)

		if bufLen+size <= maxSize {
			buf = append(buf, sentence)
			// +1 accounts for the separator joining the next unit.
			bufLen += size + 1
			continue
		}

		flush()

		if size > maxSize {
			// Pathological over-long unit: cut mid-sentence rather than
			// emitting an oversized chunk.
			for i := 0; i < size; i += maxSize {
				end := i + maxSize
				if end > size {
					end = size
				}
				chunks = append(chunks, string(runes[i:end]))
			}
			continue
		}

		buf = append(buf, sentence)
		bufLen = size + 1
	}
	flush()

	return chunks
}

// BuildChunks runs ChunkText and assigns stable chunk identities derived from
// the document id and the ordinal, so re-ingestion upserts over the same ids.
func BuildChunks(docID, text string, maxSize int) []models.Chunk {
	parts := ChunkText(text, maxSize)
	chunks := make([]models.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, models.Chunk{
			ID:      fmt.Sprintf("%s_%d", docID, i),
			Text:    part,
			Ordinal: i,
		})
	}
	return chunks
}
