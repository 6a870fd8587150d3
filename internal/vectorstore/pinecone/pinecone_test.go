package pinecone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

type fakeIndex struct {
	upserts []map[string]any
	queries []map[string]any
	deletes []map[string]any
	// ids returned by every query
	queryIDs []string
	failPath string
}

func (f *fakeIndex) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	decode := func(r *http.Request) map[string]any {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "secret-key", r.Header.Get("Api-Key"))
		return body
	}
	mux.HandleFunc("/vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		if f.failPath == r.URL.Path {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.upserts = append(f.upserts, decode(r))
		fmt.Fprint(w, `{"upsertedCount":1}`)
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if f.failPath == r.URL.Path {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.queries = append(f.queries, decode(r))
		matches := make([]map[string]any, 0, len(f.queryIDs))
		for i, id := range f.queryIDs {
			matches = append(matches, map[string]any{
				"id":    id,
				"score": 1.0 - float64(i)*0.1,
				"metadata": map[string]any{
					"text":        "chunk text " + id,
					"source":      "doc.pdf",
					"chunk_index": float64(i),
					"session_id":  "s1",
					"uploaded_at": time.Now().UTC().Format(time.RFC3339),
				},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"matches": matches})
	})
	mux.HandleFunc("/vectors/delete", func(w http.ResponseWriter, r *http.Request) {
		f.deletes = append(f.deletes, decode(r))
		fmt.Fprint(w, `{}`)
	})
	return mux
}

func newTestStore(t *testing.T, f *fakeIndex) *Store {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewStore(Config{Host: srv.URL, APIKey: "secret-key"})
}

func makeRecords(n int) []domain.VectorRecord {
	records := make([]domain.VectorRecord, n)
	for i := range records {
		records[i] = domain.VectorRecord{
			ID:     domain.RecordID("s1", i),
			Vector: make([]float32, domain.EmbeddingDim),
			Metadata: domain.Metadata{
				Text: fmt.Sprintf("text %d", i), Source: "doc.pdf",
				ChunkIndex: i, Session: "s1", UploadedAt: time.Now(),
			},
		}
	}
	return records
}

func TestUpsertBatchesOfHundred(t *testing.T) {
	f := &fakeIndex{}
	s := newTestStore(t, f)
	require.NoError(t, s.Upsert(context.Background(), makeRecords(250)))
	require.Len(t, f.upserts, 3)
	assert.Len(t, f.upserts[0]["vectors"], 100)
	assert.Len(t, f.upserts[1]["vectors"], 100)
	assert.Len(t, f.upserts[2]["vectors"], 50)
}

func TestUpsertFailurePropagates(t *testing.T) {
	f := &fakeIndex{failPath: "/vectors/upsert"}
	s := newTestStore(t, f)
	err := s.Upsert(context.Background(), makeRecords(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinecone upsert")
}

func TestQuerySendsSessionFilter(t *testing.T) {
	f := &fakeIndex{queryIDs: []string{"s1_0", "s1_1"}}
	s := newTestStore(t, f)
	matches, err := s.Query(context.Background(), make([]float32, domain.EmbeddingDim), 4, "s1")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "s1_0", matches[0].Record.ID)
	assert.Equal(t, "doc.pdf", matches[0].Record.Metadata.Source)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	require.Len(t, f.queries, 1)
	q := f.queries[0]
	assert.Equal(t, float64(4), q["topK"])
	assert.Equal(t, true, q["includeMetadata"])
	filter := q["filter"].(map[string]any)["session_id"].(map[string]any)
	assert.Equal(t, "s1", filter["$eq"])
}

func TestDeleteSessionSweepsAndBatches(t *testing.T) {
	ids := make([]string, 1500)
	for i := range ids {
		ids[i] = domain.RecordID("s1", i)
	}
	f := &fakeIndex{queryIDs: ids}
	s := newTestStore(t, f)
	deleted, err := s.DeleteSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1500, deleted)

	// Sweep query uses a zero vector and the large topK idiom.
	require.Len(t, f.queries, 1)
	assert.Equal(t, float64(sweepTopK), f.queries[0]["topK"])
	vec := f.queries[0]["vector"].([]any)
	assert.Len(t, vec, domain.EmbeddingDim)
	for _, v := range vec[:8] {
		assert.Equal(t, float64(0), v)
	}

	require.Len(t, f.deletes, 2)
	assert.Len(t, f.deletes[0]["ids"], 1000)
	assert.Len(t, f.deletes[1]["ids"], 500)
}

func TestDeleteSessionWithNothingToDelete(t *testing.T) {
	f := &fakeIndex{}
	s := newTestStore(t, f)
	deleted, err := s.DeleteSession(context.Background(), "empty")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, f.deletes)
}

func TestCountUsesSweep(t *testing.T) {
	f := &fakeIndex{queryIDs: []string{"a", "b", "c"}}
	s := newTestStore(t, f)
	n, err := s.Count(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
