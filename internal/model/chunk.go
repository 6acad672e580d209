package model

// Chunk is a bounded, page-tagged segment of document text used as a
// retrieval unit. Chunks are created once at ingestion and immutable
// afterwards.
//
// Embedding is populated between chunking and indexing and stripped
// before the chunk metadata is persisted.
type Chunk struct {
	ChunkID    string    `json:"chunk_id"`
	DocID      string    `json:"doc_id"`
	Text       string    `json:"text"`
	PageStart  int       `json:"page_start"`
	PageEnd    int       `json:"page_end"`
	TokenCount int       `json:"token_count"`
	Embedding  []float32 `json:"-"`
}

// Evidence is a chunk selected as candidate support for an answer.
// Similarity is the inner-product score from index retrieval,
// CrossScore the reranker score. After reranking, evidence is ordered
// by descending CrossScore.
type Evidence struct {
	Chunk
	Similarity float64 `json:"similarity_score"`
	CrossScore float64 `json:"cross_score"`
}
