package parser

import (
	"fmt"
	"strings"
	"unicode"

	"document-index/internal/models"
)

// RecursiveSplitter splits text into chunks of at most ChunkSize runes,
// preferring the coarsest separator that keeps pieces under the limit.
// Consecutive chunks share up to ChunkOverlap runes of trailing context.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// SplitText splits text with the default separators.
func SplitText(text string, chunkSize, chunkOverlap int) ([]string, error) {
	s := RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   models.DefaultSeparators,
	}
	return s.Split(text)
}

// span is a half-open range of rune offsets into the text being split.
type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

func (s RecursiveSplitter) validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidArgument, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidArgument, s.ChunkSize, s.ChunkOverlap)
	}
	return nil
}

func (s RecursiveSplitter) Split(text string) ([]string, error) {
	runes, spans, err := s.spans(text)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, nil
	}
	chunks := make([]string, 0, len(spans))
	for _, sp := range spans {
		chunks = append(chunks, string(runes[sp.start:sp.end]))
	}
	return chunks, nil
}

func (s RecursiveSplitter) spans(text string) ([]rune, []span, error) {
	if err := s.validate(); err != nil {
		return nil, nil, err
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return runes, nil, nil
	}
	seps := s.Separators
	if len(seps) == 0 {
		seps = models.DefaultSeparators
	}
	return runes, s.split(runes, span{0, len(runes)}, seps), nil
}

func (s RecursiveSplitter) split(runes []rune, region span, seps []string) []span {
	sep, finer := pickSeparator(runes[region.start:region.end], seps)

	var out, good []span
	for _, piece := range cut(runes, region, sep) {
		if piece.len() <= s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(runes, good)...)
			good = nil
		}
		if len(finer) == 0 {
			// nothing left to split on; only reachable with custom separators
			if sp, ok := trim(runes, piece); ok {
				out = append(out, sp)
			}
			continue
		}
		out = append(out, s.split(runes, piece, finer)...)
	}
	if len(good) > 0 {
		out = append(out, s.merge(runes, good)...)
	}
	return out
}

// merge packs contiguous pieces into windows of at most ChunkSize runes,
// carrying trailing pieces of up to ChunkOverlap runes into the next window.
func (s RecursiveSplitter) merge(runes []rune, pieces []span) []span {
	var (
		out    []span
		window []span
		total  int
	)
	emit := func() {
		sp, ok := trim(runes, span{window[0].start, window[len(window)-1].end})
		if !ok {
			return
		}
		if n := len(out); n > 0 {
			switch {
			case sp.end <= out[n-1].end:
				return
			case sp.start <= out[n-1].start:
				// only whitespace was dropped from the front; the new window supersedes the last
				out[n-1] = sp
				return
			}
		}
		out = append(out, sp)
	}

	for _, p := range pieces {
		n := p.len()
		if total+n > s.ChunkSize && len(window) > 0 {
			emit()
			for len(window) > 0 && (total > s.ChunkOverlap || total+n > s.ChunkSize) {
				total -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if len(window) > 0 {
		emit()
	}
	return out
}

// pickSeparator returns the first separator present in text and the finer
// separators after it. The empty separator always matches.
func pickSeparator(text []rune, seps []string) (string, []string) {
	str := string(text)
	for i, sep := range seps {
		if sep == "" || strings.Contains(str, sep) {
			return sep, seps[i+1:]
		}
	}
	return seps[len(seps)-1], nil
}

// cut splits region on sep, keeping each separator at the start of the piece
// after it. An empty sep cuts between every rune.
func cut(runes []rune, region span, sep string) []span {
	if sep == "" {
		pieces := make([]span, 0, region.len())
		for i := region.start; i < region.end; i++ {
			pieces = append(pieces, span{i, i + 1})
		}
		return pieces
	}

	sr := []rune(sep)
	var pieces []span
	start := region.start
	for i := region.start; i+len(sr) <= region.end; {
		if hasRunesAt(runes, i, sr) {
			if i > start {
				pieces = append(pieces, span{start, i})
			}
			start = i
			i += len(sr)
			continue
		}
		i++
	}
	if start < region.end {
		pieces = append(pieces, span{start, region.end})
	}
	return pieces
}

func hasRunesAt(runes []rune, at int, sub []rune) bool {
	for j, r := range sub {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}

func trim(runes []rune, sp span) (span, bool) {
	for sp.start < sp.end && unicode.IsSpace(runes[sp.start]) {
		sp.start++
	}
	for sp.end > sp.start && unicode.IsSpace(runes[sp.end-1]) {
		sp.end--
	}
	return sp, sp.start < sp.end
}
