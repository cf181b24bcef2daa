package channel

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkLimit is the Telegram message length ceiling used when no
// limit is configured
const DefaultChunkLimit = 4000

// SplitMessage splits text into ordered chunks of at most limit characters.
// Splits prefer a newline boundary at or before the limit, then a space
// boundary, then a hard cut. Boundary characters stay at the end of the
// chunk they close, so concatenating the chunks reproduces the input
// exactly.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	if len(text) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	rest := text
	for len(rest) > limit {
		window := rest[:limit]
		cut := strings.LastIndexByte(window, '\n')
		if cut < 0 {
			cut = strings.LastIndexByte(window, ' ')
		}
		if cut < 0 {
			// Hard cut on a rune boundary, not a byte offset: the limit may
			// land inside a multi-byte character.
			cut = limit - 1
			for cut > 0 && !utf8.RuneStart(rest[cut+1]) {
				cut--
			}
			if cut == 0 && !utf8.RuneStart(rest[1]) {
				// A single rune wider than the limit is sent whole rather
				// than split into invalid bytes.
				_, size := utf8.DecodeRuneInString(rest)
				cut = size - 1
			}
		}
		chunks = append(chunks, rest[:cut+1])
		rest = rest[cut+1:]
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
