package model

import "strconv"

// Document is a single legal case document, the unit of ingestion. It is
// immutable once handed to the retriever.
type Document struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Citation string `json:"citation"`
	State    string `json:"state"`
	Issuer   string `json:"issuer"`
	Text     string `json:"text"`
}

// Chunk is a bounded slice of a document's text, the unit of retrieval.
// Chunks of one document cover a contiguous index range [0, TotalChunks).
type Chunk struct {
	DocID       string `json:"doc_id"`
	ChunkID     string `json:"chunk_id"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	Text        string `json:"text"`
	Title       string `json:"title"`
	Citation    string `json:"citation"`
	State       string `json:"state"`
	Issuer      string `json:"issuer"`
}

func MakeChunkID(docID string, chunkIndex int) string {
	return docID + "_" + strconv.Itoa(chunkIndex)
}
