package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docchat/internal/domain"
)

const (
	upsertBatchSize = 100
	deleteBatchSize = 1000
	// sweepTopK with a zero query vector is the "match everything
	// with this filter" idiom used to collect a session's ids.
	sweepTopK = 10000
)

// Store is a minimal REST client to a Pinecone index.
type Store struct {
	host      string
	apiKey    string
	namespace string
	client    *http.Client
}

type Config struct {
	// Host is the index endpoint, e.g. https://idx-abc123.svc.us-east-1-aws.pinecone.io
	Host      string
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		host:      cfg.Host,
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		client:    &http.Client{Timeout: timeout},
	}
}

// Upsert writes records in batches of 100, sequentially. Any batch
// failure aborts and propagates.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	for lo := 0; lo < len(records); lo += upsertBatchSize {
		hi := lo + upsertBatchSize
		if hi > len(records) {
			hi = len(records)
		}
		vectors := make([]map[string]any, 0, hi-lo)
		for _, r := range records[lo:hi] {
			vectors = append(vectors, map[string]any{
				"id":       r.ID,
				"values":   r.Vector,
				"metadata": metadataPayload(r.Metadata),
			})
		}
		body := map[string]any{"vectors": vectors}
		if s.namespace != "" {
			body["namespace"] = s.namespace
		}
		if err := s.postJSON(ctx, "/vectors/upsert", body, nil); err != nil {
			return fmt.Errorf("pinecone upsert: %w", err)
		}
	}
	return nil
}

// Query runs a similarity search scoped to the session by an
// exact-match metadata filter. Ranking is the index's own.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, session string) ([]domain.QueryMatch, error) {
	if topK <= 0 {
		topK = 4
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"filter":          sessionFilter(session),
	}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := s.postJSON(ctx, "/query", body, &resp); err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}
	matches := make([]domain.QueryMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, domain.QueryMatch{
			Record: domain.VectorRecord{ID: m.ID, Metadata: parseMetadata(m.Metadata)},
			Score:  m.Score,
		})
	}
	return matches, nil
}

// DeleteSession sweeps the session's ids with a zero-vector query and
// deletes them in batches of 1000. Returns how many ids it deleted.
func (s *Store) DeleteSession(ctx context.Context, session string) (int, error) {
	ids, err := s.sessionIDs(ctx, session)
	if err != nil {
		return 0, err
	}
	for lo := 0; lo < len(ids); lo += deleteBatchSize {
		hi := lo + deleteBatchSize
		if hi > len(ids) {
			hi = len(ids)
		}
		body := map[string]any{"ids": ids[lo:hi]}
		if s.namespace != "" {
			body["namespace"] = s.namespace
		}
		if err := s.postJSON(ctx, "/vectors/delete", body, nil); err != nil {
			return 0, fmt.Errorf("pinecone delete: %w", err)
		}
	}
	return len(ids), nil
}

// Count reports how many vectors a session currently owns.
func (s *Store) Count(ctx context.Context, session string) (int, error) {
	ids, err := s.sessionIDs(ctx, session)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Store) sessionIDs(ctx context.Context, session string) ([]string, error) {
	zero := make([]float32, domain.EmbeddingDim)
	body := map[string]any{
		"vector": zero,
		"topK":   sweepTopK,
		"filter": sessionFilter(session),
	}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	var resp struct {
		Matches []struct {
			ID string `json:"id"`
		} `json:"matches"`
	}
	if err := s.postJSON(ctx, "/query", body, &resp); err != nil {
		return nil, fmt.Errorf("pinecone session sweep: %w", err)
	}
	ids := make([]string, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func sessionFilter(session string) map[string]any {
	return map[string]any{"session_id": map[string]any{"$eq": session}}
}

func metadataPayload(m domain.Metadata) map[string]any {
	return map[string]any{
		"text":        m.Text,
		"source":      m.Source,
		"chunk_index": m.ChunkIndex,
		"session_id":  m.Session,
		"uploaded_at": m.UploadedAt.UTC().Format(time.RFC3339),
	}
}

func parseMetadata(p map[string]any) domain.Metadata {
	md := domain.Metadata{}
	if v, ok := p["text"].(string); ok {
		md.Text = v
	}
	if v, ok := p["source"].(string); ok {
		md.Source = v
	}
	if v, ok := p["chunk_index"].(float64); ok {
		md.ChunkIndex = int(v)
	}
	if v, ok := p["session_id"].(string); ok {
		md.Session = v
	}
	if v, ok := p["uploaded_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			md.UploadedAt = ts
		}
	}
	return md
}

func (s *Store) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s failed: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
