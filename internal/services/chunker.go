package services

import (
	"strings"
	"unicode/utf8"
)

type TextChunker interface {
	// ChunkText splits text on blank-line section boundaries into chunks of at
	// most maxChunkSize runes, carrying overlap runes from the previous chunk.
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

type chunkBuilder struct {
	chunks  []string
	current strings.Builder
	max     int
	overlap int
}

func (cb *chunkBuilder) add(piece, sep string) {
	if cb.current.Len() > 0 && utf8.RuneCountInString(cb.current.String())+utf8.RuneCountInString(piece)+len(sep) > cb.max {
		cb.flush(sep)
	}
	if cb.current.Len() > 0 {
		cb.current.WriteString(sep)
	}
	cb.current.WriteString(piece)
}

func (cb *chunkBuilder) flush(sep string) {
	prev := cb.current.String()
	cb.chunks = append(cb.chunks, prev)
	cb.current.Reset()
	if tail := lastRunes(prev, cb.overlap); tail != "" {
		cb.current.WriteString(tail)
	}
}

// ChunkText implements TextChunker.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	cb := &chunkBuilder{max: maxChunkSize, overlap: overlap}

	for _, section := range strings.Split(text, "\n\n") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		if utf8.RuneCountInString(section) <= maxChunkSize {
			cb.add(section, "\n\n")
			continue
		}

		// long sections are split line by line, then by sentence
		for _, line := range strings.Split(section, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if utf8.RuneCountInString(line) <= maxChunkSize {
				cb.add(line, "\n")
				continue
			}
			for _, sentence := range splitIntoSentences(line) {
				cb.add(sentence, " ")
			}
		}
	}

	if cb.current.Len() > 0 {
		cb.chunks = append(cb.chunks, cb.current.String())
	}

	return cb.chunks
}

func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
