package usecase

import "strings"

// chunkSeparators are tried in order: paragraph breaks first, then lines,
// then words, then raw characters.
var chunkSeparators = []string{"\n\n", "\n", " ", ""}

// SplitText splits text into chunks of at most size characters with roughly
// overlap characters carried between adjacent chunks. Splits prefer natural
// boundaries, recursing to finer separators only for pieces that are still
// too large.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 2
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return splitRecursive(text, size, overlap, chunkSeparators)
}

func splitRecursive(text string, size, overlap int, separators []string) []string {
	if len(text) <= size {
		return []string{text}
	}

	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		for i := 0; i < len(text); i += size {
			end := i + size
			if end > len(text) {
				end = len(text)
			}
			pieces = append(pieces, text[i:end])
		}
		return pieces
	}

	for _, piece := range strings.Split(text, separator) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if len(piece) > size && len(rest) > 0 {
			pieces = append(pieces, splitRecursive(piece, size, overlap, rest)...)
		} else {
			pieces = append(pieces, piece)
		}
	}

	return mergePieces(pieces, separator, size, overlap)
}

// mergePieces greedily packs pieces into chunks up to size, then seeds each
// following chunk with up to overlap characters of trailing pieces from the
// previous one.
func mergePieces(pieces []string, separator string, size, overlap int) []string {
	sepLen := len(separator)

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, separator))

		// Keep trailing pieces within the overlap window.
		var kept []string
		keptLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			pieceLen := len(current[i]) + sepLen
			if keptLen+pieceLen > overlap {
				break
			}
			kept = append([]string{current[i]}, kept...)
			keptLen += pieceLen
		}
		current = kept
		currentLen = keptLen
	}

	for _, piece := range pieces {
		pieceLen := len(piece)
		if len(current) > 0 {
			pieceLen += sepLen
		}
		if currentLen+pieceLen > size && len(current) > 0 {
			flush()
			if len(current) > 0 {
				pieceLen += sepLen
			} else {
				pieceLen = len(piece)
			}
		}
		current = append(current, piece)
		currentLen += pieceLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, separator))
	}

	// The overlap seed of the final flush may duplicate the last chunk.
	if len(chunks) >= 2 && chunks[len(chunks)-1] == chunks[len(chunks)-2] {
		chunks = chunks[:len(chunks)-1]
	}
	return chunks
}
