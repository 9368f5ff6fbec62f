// Package chunker splits text and entry lists into pieces bounded by a
// token budget.
package chunker

import (
	"strings"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 600
)

// SizeFunc measures a piece of text, usually in tokens.
type SizeFunc func(string) int

// Options configures chunking behavior. Sizes are measured with Size, which
// defaults to byte length.
type Options struct {
	TargetSize int
	MaxSize    int
	Size       SizeFunc
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

func (o Options) size(s string) int {
	if o.Size != nil {
		return o.Size(s)
	}
	return len(s)
}

// ChunkResult represents a chunk with its position in the original text.
type ChunkResult struct {
	Text      string
	StartLine int
	EndLine   int
}

// Chunk splits text into chunks on paragraph boundaries. Text within
// MaxSize returns a single chunk.
func Chunk(text string, opts Options) []ChunkResult {
	if opts.TargetSize == 0 {
		size := opts.Size
		opts = DefaultOptions()
		opts.Size = size
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	if opts.size(text) <= opts.MaxSize {
		lines := strings.Count(text, "\n")
		return []ChunkResult{{Text: text, StartLine: 1, EndLine: lines + 1}}
	}

	return mergeBlocks(splitBlocks(text), opts)
}

// Group partitions texts, in order, into consecutive groups whose combined
// size stays within budget. A single text larger than budget forms its own
// group. The result holds the indices of each group.
func Group(texts []string, budget int, size SizeFunc) [][]int {
	if size == nil {
		size = func(s string) int { return len(s) }
	}
	var groups [][]int
	var current []int
	used := 0
	for i, t := range texts {
		n := size(t)
		if len(current) > 0 && budget > 0 && used+n > budget {
			groups = append(groups, current)
			current = nil
			used = 0
		}
		current = append(current, i)
		used += n
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

type block struct {
	text      string
	startLine int
	endLine   int
}

// splitBlocks splits text on blank lines.
func splitBlocks(text string) []block {
	lines := strings.Split(text, "\n")
	var blocks []block
	var current []string
	startLine := 1

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			blocks = append(blocks, block{text: t, startLine: startLine, endLine: endLine})
		}
		current = nil
		startLine = endLine + 1
	}

	for i, line := range lines {
		lineNum := i + 1
		if strings.TrimSpace(line) == "" {
			flush(lineNum)
			continue
		}
		current = append(current, line)
	}
	flush(len(lines))

	return blocks
}

// mergeBlocks combines small blocks and splits oversized ones.
func mergeBlocks(blocks []block, opts Options) []ChunkResult {
	var results []ChunkResult
	var accum block

	flushAccum := func() {
		t := strings.TrimSpace(accum.text)
		if t == "" {
			return
		}
		if opts.size(t) > opts.MaxSize {
			results = append(results, hardSplit(t, accum.startLine, opts)...)
		} else {
			results = append(results, ChunkResult{Text: t, StartLine: accum.startLine, EndLine: accum.endLine})
		}
		accum = block{}
	}

	for _, b := range blocks {
		if accum.text == "" {
			accum = b
			continue
		}

		combined := accum.text + "\n\n" + b.text
		if opts.size(combined) <= opts.TargetSize {
			accum.text = combined
			accum.endLine = b.endLine
		} else {
			flushAccum()
			accum = b
		}
	}
	flushAccum()

	return results
}

// hardSplit breaks text that exceeds MaxSize on line boundaries.
func hardSplit(text string, startLine int, opts Options) []ChunkResult {
	lines := strings.Split(text, "\n")
	var results []ChunkResult
	var current []string
	curStart := startLine
	curLen := 0

	for i, line := range lines {
		lineLen := opts.size(line)
		if curLen+lineLen > opts.TargetSize && len(current) > 0 {
			t := strings.TrimSpace(strings.Join(current, "\n"))
			if t != "" {
				results = append(results, ChunkResult{
					Text:      t,
					StartLine: curStart,
					EndLine:   startLine + i - 1,
				})
			}
			current = nil
			curStart = startLine + i
			curLen = 0
		}
		current = append(current, line)
		curLen += lineLen
	}

	if len(current) > 0 {
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			results = append(results, ChunkResult{
				Text:      t,
				StartLine: curStart,
				EndLine:   startLine + len(lines) - 1,
			})
		}
	}

	return results
}
