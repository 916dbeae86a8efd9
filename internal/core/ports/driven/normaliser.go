package driven

// Anchor is a hyperlink found in a document, resolved against the page URL.
type Anchor struct {
	// Text is the trimmed visible text of the anchor (may be empty)
	Text string

	// Href is the absolute URL the anchor points to
	Href string
}

// NormalisedPage is the text content and anchors extracted from raw markup.
type NormalisedPage struct {
	// Text has non-content elements removed and whitespace collapsed
	Text string

	// Anchors lists every anchor with an href, in document order
	Anchors []Anchor
}

// Normaliser extracts indexable text from raw fetched content.
type Normaliser interface {
	// Normalise transforms raw content into a normalised page.
	// baseURL is used to resolve relative anchors.
	Normalise(content []byte, baseURL string) (*NormalisedPage, error)

	// SupportedTypes returns MIME types this normaliser handles.
	// Can include wildcards like "text/*" or specific types like "text/html".
	SupportedTypes() []string

	// Priority returns the normaliser priority (higher = more specific).
	// Priority ranges:
	//   50-89:  Format-specific (HTML, XHTML)
	//   10-49:  Generic (basic text processing)
	//   1-9:    Fallback (raw text extraction)
	Priority() int
}

// NormaliserRegistry manages content normalisers.
// When multiple normalisers match a MIME type, the highest priority one is used.
type NormaliserRegistry interface {
	// Get retrieves the best-matching normaliser for a MIME type.
	// Returns nil if no normaliser is registered for the type.
	Get(mimeType string) Normaliser

	// Register registers a normaliser.
	Register(normaliser Normaliser)

	// List returns all registered MIME types.
	List() []string
}

// PostProcessor applies post-processing to text spans.
// Processors form a pipeline: Splitter -> WhitespaceNormalizer -> etc.
type PostProcessor interface {
	// Process applies post-processing to spans.
	// The first processor (the splitter) receives a single span with the full text.
	Process(spans []Span) []Span

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier).
	Order() int
}

// Span is a piece of page text moving through the post-processing pipeline.
type Span struct {
	// Content is the text of the span
	Content string

	// Position is the span index within the page (0-based)
	Position int
}

// PostProcessorPipeline chains multiple post-processors in order.
type PostProcessorPipeline interface {
	// Process applies all processors in order to the page text.
	Process(content string) []Span

	// Add adds a processor to the pipeline.
	Add(processor PostProcessor)

	// List returns processor names in order.
	List() []string
}
