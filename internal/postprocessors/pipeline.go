package postprocessors

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains multiple post-processors in order, starting with a splitter.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order to the page text.
func (p *Pipeline) Process(content string) []driven.Span {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	spans := []driven.Span{{Content: content}}
	for _, proc := range processors {
		spans = proc.Process(spans)
	}

	for i := range spans {
		spans[i].Position = i
	}
	return spans
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline with the default processors.
func DefaultPipeline() *Pipeline {
	return NewSplitPipeline(DefaultSplitConfig())
}

// NewSplitPipeline creates a pipeline that splits with config and drops blank spans.
func NewSplitPipeline(config SplitConfig) *Pipeline {
	p := NewPipeline()
	p.Add(NewRecursiveSplitter(config))
	p.Add(NewWhitespaceNormalizer())
	return p
}

// SplitConfig configures the recursive splitter. Sizes are in characters.
type SplitConfig struct {
	// ChunkSize is the maximum characters per span
	ChunkSize int

	// Overlap is the number of trailing characters carried into the next span
	Overlap int

	// Separators are tried in order; "" splits into single characters
	Separators []string
}

// DefaultSplitConfig returns 300-character spans with 100 characters of overlap.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		ChunkSize:  300,
		Overlap:    100,
		Separators: []string{"\n\n", "\n", " ", ""},
	}
}

// RecursiveSplitter splits text on the coarsest separator that occurs in it,
// recursing into pieces that are still too long, then greedily merges
// neighbouring pieces up to ChunkSize with up to Overlap characters shared
// between consecutive spans. Separators stay attached to the start of the
// piece that follows them.
type RecursiveSplitter struct {
	config SplitConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*RecursiveSplitter)(nil)

// NewRecursiveSplitter creates a splitter with the given config.
func NewRecursiveSplitter(config SplitConfig) *RecursiveSplitter {
	if len(config.Separators) == 0 {
		config.Separators = DefaultSplitConfig().Separators
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultSplitConfig().ChunkSize
	}
	if config.Overlap < 0 || config.Overlap >= config.ChunkSize {
		config.Overlap = 0
	}
	return &RecursiveSplitter{config: config}
}

// Process splits every span.
func (s *RecursiveSplitter) Process(spans []driven.Span) []driven.Span {
	var result []driven.Span
	for _, span := range spans {
		for _, text := range s.Split(span.Content) {
			result = append(result, driven.Span{Content: text})
		}
	}
	return result
}

// Name returns the processor name.
func (s *RecursiveSplitter) Name() string {
	return "recursive-splitter"
}

// Order returns 0 - splitter should be first.
func (s *RecursiveSplitter) Order() int {
	return 0
}

// Split splits text into spans.
func (s *RecursiveSplitter) Split(text string) []string {
	return s.split(text, s.config.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.config.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge joins pieces into spans of at most ChunkSize characters, keeping
// up to Overlap characters of trailing pieces at the start of the next span.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.config.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.config.Overlap || (total+n > s.config.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits text on sep, attaching each separator to
// the start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// WhitespaceNormalizer normalizes whitespace in spans and drops empty ones.
type WhitespaceNormalizer struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*WhitespaceNormalizer)(nil)

// NewWhitespaceNormalizer creates a new whitespace normalizer.
func NewWhitespaceNormalizer() *WhitespaceNormalizer {
	return &WhitespaceNormalizer{}
}

// Process trims spans, normalises line endings and drops blank spans.
func (w *WhitespaceNormalizer) Process(spans []driven.Span) []driven.Span {
	result := make([]driven.Span, 0, len(spans))

	for _, span := range spans {
		content := strings.ReplaceAll(span.Content, "\r\n", "\n")
		content = strings.ReplaceAll(content, "\r", "\n")
		content = strings.TrimSpace(content)

		if content != "" {
			span.Content = content
			result = append(result, span)
		}
	}

	return result
}

// Name returns the processor name.
func (w *WhitespaceNormalizer) Name() string {
	return "whitespace-normalizer"
}

// Order returns 5 - runs after the splitter.
func (w *WhitespaceNormalizer) Order() int {
	return 5
}
