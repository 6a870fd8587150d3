package domain

import (
	"context"
	"fmt"
	"time"
)

// EmbeddingDim is the dimension of vectors produced by the embedding
// service. The vector index must be created with the same dimension.
const EmbeddingDim = 768

// Chunk is a cleaned, bounded substring of a document's extracted text.
// Index is the chunk's zero-based position within its document.
type Chunk struct {
	Text    string
	Source  string
	Index   int
	Session string
}

// Metadata is the payload stored alongside each vector.
type Metadata struct {
	Text       string
	Source     string
	ChunkIndex int
	Session    string
	UploadedAt time.Time
}

// VectorRecord is the persisted unit in the vector index.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// QueryMatch is a similarity query result. It is never persisted.
type QueryMatch struct {
	Record VectorRecord
	Score  float64
}

// Source identifies where a piece of an answer came from.
type Source struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	Session    string `json:"session_id"`
}

// Answer is the result of asking a question against a session.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// RecordID builds the index key for a chunk's vector.
func RecordID(session string, chunkIndex int) string {
	return fmt.Sprintf("%s_%d", session, chunkIndex)
}

// Extractor pulls plain text out of a document file.
type Extractor interface {
	Extract(path string) (string, error)
}

// Embedder is a remote embedding provider exposing batch and
// single-item operations.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Generator synthesizes an answer text from a combined prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorStore persists session-tagged vectors and supports filtered
// similarity search.
type VectorStore interface {
	Upsert(ctx context.Context, records []VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, session string) ([]QueryMatch, error)
	// DeleteSession removes every vector tagged with the session and
	// reports how many it deleted.
	DeleteSession(ctx context.Context, session string) (int, error)
	Count(ctx context.Context, session string) (int, error)
}
