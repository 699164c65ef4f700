package model

// SearchResult is a retrieved chunk joined with its similarity score.
// Score is an inner product of unit vectors, so it equals cosine similarity.
type SearchResult struct {
	Chunk
	Score float32 `json:"similarity_score"`
}

// Source points back at the document a retrieved chunk came from.
type Source struct {
	Title    string  `json:"title"`
	Citation string  `json:"citation"`
	Score    float32 `json:"similarity_score"`
}

// Answer is the result of a retrieval-augmented question.
type Answer struct {
	Answer      string         `json:"answer"`
	Sources     []Source       `json:"sources"`
	ContextUsed []SearchResult `json:"context_used"`
}

// SummarySource identifies the document behind a by-title summary.
type SummarySource struct {
	Title       string `json:"title"`
	Citation    string `json:"citation"`
	TotalChunks int    `json:"total_chunks"`
}

// SummaryResult is the outcome of a by-title summarization. Source is nil
// when no document matched the requested title.
type SummaryResult struct {
	Summary string         `json:"summary"`
	Source  *SummarySource `json:"source"`
}

// DocumentFailure records a document skipped during ingestion.
type DocumentFailure struct {
	DocID  string `json:"doc_id"`
	Reason string `json:"reason"`
}

// IngestReport is the per-batch outcome of Process. One bad document never
// aborts the batch; it shows up here instead.
type IngestReport struct {
	Documents int               `json:"documents"`
	Skipped   int               `json:"skipped"`
	Chunks    int               `json:"chunks"`
	Failures  []DocumentFailure `json:"failures,omitempty"`
}
