package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
)

// separators is the split priority: paragraph break, line break, space,
// then a hard character cut as the last resort.
var separators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts document text into chunks of at most chunkSize bytes where
// adjacent chunks share a trailing/leading window of overlap bytes. Splitting
// is fully deterministic: same text and same config always produce the same
// chunk sequence.
type Splitter struct {
	chunkSize int
	overlap   int
}

func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", apperr.ErrInvalid, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", apperr.ErrInvalid, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", apperr.ErrInvalid, overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

func (s *Splitter) ChunkSize() int { return s.chunkSize }
func (s *Splitter) Overlap() int   { return s.overlap }

// Split returns the chunk sequence for text. Empty or whitespace-only text
// yields no chunks; text that already fits in one chunk is returned trimmed
// and unmodified.
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) <= s.chunkSize {
		return []string{trimmed}
	}

	// Every piece is capped at chunkSize-overlap so that a carried overlap
	// window plus at least one piece always fits into a chunk. This is
	// stricter than falling back only past chunkSize: a paragraph between
	// chunkSize-overlap and chunkSize is still broken at a finer separator,
	// which keeps every emitted chunk within chunkSize including its
	// overlap prefix.
	maxPiece := s.chunkSize - s.overlap
	pieces := breakText(trimmed, separators, maxPiece)

	var chunks []string
	var cur strings.Builder
	for _, piece := range pieces {
		if cur.Len() > 0 && cur.Len()+len(piece) > s.chunkSize {
			chunk := cur.String()
			chunks = append(chunks, chunk)
			cur.Reset()
			cur.WriteString(tail(chunk, s.overlap))
		}
		cur.WriteString(piece)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// breakText splits text into pieces of at most maxPiece bytes, preferring the
// coarsest separator and only descending to a finer one for pieces that are
// still too long.
func breakText(text string, seps []string, maxPiece int) []string {
	if len(text) <= maxPiece {
		return []string{text}
	}
	sep := seps[0]
	if sep == "" {
		return hardCut(text, maxPiece)
	}
	var out []string
	for _, piece := range strings.SplitAfter(text, sep) {
		if piece == "" {
			continue
		}
		if len(piece) <= maxPiece {
			out = append(out, piece)
			continue
		}
		out = append(out, breakText(piece, seps[1:], maxPiece)...)
	}
	return out
}

// hardCut slices text into maxPiece-sized pieces on rune boundaries.
func hardCut(text string, maxPiece int) []string {
	var out []string
	start := 0
	size := 0
	for i, r := range text {
		rl := utf8.RuneLen(r)
		if size+rl > maxPiece {
			out = append(out, text[start:i])
			start = i
			size = 0
		}
		size += rl
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// tail returns the suffix of s holding at most n bytes, aligned to a rune
// boundary so an overlap window never starts mid-rune.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}
