package rag

import "strconv"

// Chunk is one window of a document's words together with its provenance.
// Position is the chunk's slot in the corpus and the id of its vector in the
// Index; the two must always agree.
type Chunk struct {
	DocID    string // Synthetic document id, "doc_<n>" in enumeration order
	ChunkID  int    // 0-based position of the chunk within its document
	Text     string // The chunk words joined by single spaces
	Source   string // Original filename
	Position int    // Corpus position, shared with the index vector id
}

// Citation returns the chunk's citation marker, [source:chunk_id].
func (c Chunk) Citation() string {
	return "[" + c.Source + ":" + strconv.Itoa(c.ChunkID) + "]"
}

// SearchResult is a retrieved chunk with its squared Euclidean distance to
// the query. Lower is more similar.
type SearchResult struct {
	Chunk
	Score float32
}

// Meta describes how a persisted index was built.
type Meta struct {
	ModelInfo string // Embedding model used for every vector
	Dimension int    // Embedding vector dimension
	Count     int    // Number of vectors (and chunks)
}

// Summary is returned by a successful index build.
type Summary struct {
	Chunks     int
	Vectors    int
	Dimension  int
	ModelInfo  string
	IndexPath  string
	CorpusPath string
}
