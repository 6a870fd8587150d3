package local

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"

	"docchat/internal/domain"
)

const collectionName = "docchat"

// Store is an embedded vector store backed by chromem-go. It serves
// local chat mode and in-process tests; the session contract matches
// the remote adapter's.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewStore opens a persistent store at path, or a purely in-memory
// one when path is empty.
func NewStore(path string) (*Store, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
	}
	collection, err := db.GetOrCreateCollection(collectionName, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	return &Store{db: db, collection: collection}, nil
}

func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	metadatas := make([]map[string]string, len(records))
	contents := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
		vectors[i] = r.Vector
		metadatas[i] = map[string]string{
			"source":      r.Metadata.Source,
			"chunk_index": strconv.Itoa(r.Metadata.ChunkIndex),
			"session_id":  r.Metadata.Session,
			"uploaded_at": r.Metadata.UploadedAt.UTC().Format(time.RFC3339),
		}
		contents[i] = r.Metadata.Text
	}
	if err := s.collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("local upsert: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int, session string) ([]domain.QueryMatch, error) {
	if topK <= 0 {
		topK = 4
	}
	total := s.collection.Count()
	if total == 0 {
		return nil, nil
	}
	if topK > total {
		topK = total
	}
	results, err := s.collection.QueryEmbedding(ctx, vector, topK, sessionWhere(session), nil)
	if err != nil {
		return nil, fmt.Errorf("local query: %w", err)
	}
	matches := make([]domain.QueryMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, domain.QueryMatch{
			Record: domain.VectorRecord{ID: r.ID, Metadata: parseMetadata(r)},
			Score:  float64(r.Similarity),
		})
	}
	return matches, nil
}

func (s *Store) DeleteSession(ctx context.Context, session string) (int, error) {
	before, err := s.Count(ctx, session)
	if err != nil {
		return 0, err
	}
	if before == 0 {
		return 0, nil
	}
	if err := s.collection.Delete(ctx, sessionWhere(session), nil); err != nil {
		return 0, fmt.Errorf("local delete: %w", err)
	}
	return before, nil
}

func (s *Store) Count(ctx context.Context, session string) (int, error) {
	total := s.collection.Count()
	if total == 0 {
		return 0, nil
	}
	// chromem has no filtered count, so sweep with a unit basis vector
	// (a zero vector cannot be cosine-normalized) and count matches.
	probe := make([]float32, domain.EmbeddingDim)
	probe[0] = 1
	results, err := s.collection.QueryEmbedding(ctx, probe, total, sessionWhere(session), nil)
	if err != nil {
		return 0, fmt.Errorf("local count: %w", err)
	}
	return len(results), nil
}

func sessionWhere(session string) map[string]string {
	return map[string]string{"session_id": session}
}

func parseMetadata(r chromem.Result) domain.Metadata {
	md := domain.Metadata{
		Text:    r.Content,
		Source:  r.Metadata["source"],
		Session: r.Metadata["session_id"],
	}
	if v, err := strconv.Atoi(r.Metadata["chunk_index"]); err == nil {
		md.ChunkIndex = v
	}
	if ts, err := time.Parse(time.RFC3339, r.Metadata["uploaded_at"]); err == nil {
		md.UploadedAt = ts
	}
	return md
}
