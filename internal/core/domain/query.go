package domain

// Fixed user-facing messages.
const (
	// MessageUnavailable is returned while no retrieval handle is ready.
	MessageUnavailable = "The retrieval chain isn't ready yet (missing credentials or vector store). " +
		"Please configure the backend and try again."

	// MessageAnswerFailed is returned when answer synthesis errors.
	MessageAnswerFailed = "I hit a snag while talking to the SatGraffin knowledge graph. Please retry shortly."

	// MessageNoAnswer is returned when the model produces empty text.
	MessageNoAnswer = "No answer could be generated."
)

// QueryRequest is an incoming natural-language question.
type QueryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
}

// SourceDocument is one retrieved chunk reported back to the caller.
type SourceDocument struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// QueryResponse is the answer to a QueryRequest.
// Response and Answer always carry the same text.
type QueryResponse struct {
	Response        string           `json:"response"`
	Answer          string           `json:"answer"`
	SourceLinks     []string         `json:"source_links"`
	SourceDocuments []SourceDocument `json:"source_documents"`
}

// NewMessageResponse creates a response carrying only a message and no sources.
func NewMessageResponse(message string) *QueryResponse {
	return &QueryResponse{
		Response:        message,
		Answer:          message,
		SourceLinks:     []string{},
		SourceDocuments: []SourceDocument{},
	}
}

// NewAnswerResponse formats an answer and its supporting chunks.
// Source links are de-duplicated in first-seen order.
func NewAnswerResponse(text string, chunks []*Chunk) *QueryResponse {
	if text == "" {
		text = MessageNoAnswer
	}
	resp := &QueryResponse{
		Response:        text,
		Answer:          text,
		SourceLinks:     []string{},
		SourceDocuments: make([]SourceDocument, 0, len(chunks)),
	}

	seen := make(map[string]bool)
	for _, c := range chunks {
		source := c.Source
		if source == "" {
			source = "Unknown"
		}
		resp.SourceDocuments = append(resp.SourceDocuments, SourceDocument{Source: source, Content: c.Content})
		if !seen[source] {
			seen[source] = true
			resp.SourceLinks = append(resp.SourceLinks, source)
		}
	}
	return resp
}

// ResolveTier identifies which resolver tier produced a match.
type ResolveTier string

const (
	ResolveTierNone    ResolveTier = "none"
	ResolveTierPattern ResolveTier = "pattern"
	ResolveTierFuzzy   ResolveTier = "fuzzy"
	ResolveTierKeyword ResolveTier = "keyword"
)

// Resolution is the outcome of resolving a query against the link index.
type Resolution struct {
	URL  string      `json:"url,omitempty"`
	Key  string      `json:"key,omitempty"`
	Tier ResolveTier `json:"tier"`
}

// Found reports whether a URL was resolved.
func (r Resolution) Found() bool {
	return r.Tier != ResolveTierNone && r.URL != ""
}
