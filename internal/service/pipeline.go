package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"docchat/internal/chunker"
	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/textnorm"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 4

	contextDelimiter = "\n---\n"

	// NoInfoAnswer is the defined successful outcome for a question
	// with no retrievable context. Not an error.
	NoInfoAnswer = "I could not find relevant information about this in the uploaded document."

	promptPreamble = "You are answering questions about a document the user uploaded. " +
		"Answer using only the context excerpts below. If the context does not " +
		"contain the answer, say you do not know. Be concise and factual.\n\nContext:\n"
)

// Pipeline is the ingestion and retrieval orchestrator. All remote
// collaborators are injected so tests can substitute fakes.
type Pipeline struct {
	extractor domain.Extractor
	chunker   *chunker.WindowChunker
	embedder  *embedding.Client
	store     domain.VectorStore
	generator domain.Generator
	logger    *log.Logger

	// Operations on the same session id are serialized so an ask
	// cannot observe a half-replaced document.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPipeline(extractor domain.Extractor, ch *chunker.WindowChunker, emb *embedding.Client, store domain.VectorStore, gen domain.Generator, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{
		extractor: extractor,
		chunker:   ch,
		embedder:  emb,
		store:     store,
		generator: gen,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (p *Pipeline) lockSession(session string) func() {
	p.mu.Lock()
	l, ok := p.locks[session]
	if !ok {
		l = &sync.Mutex{}
		p.locks[session] = l
	}
	p.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Ingest replaces the session's document: stale vectors are cleared
// (best effort), the file's text is extracted, chunked, embedded and
// upserted. Returns the number of vectors written.
func (p *Pipeline) Ingest(ctx context.Context, path, filename, session string) (int, error) {
	if session == "" || filename == "" {
		return 0, domain.ErrMissingInput
	}
	unlock := p.lockSession(session)
	defer unlock()

	if deleted, err := p.store.DeleteSession(ctx, session); err != nil {
		// Upload availability wins over cleanup completeness.
		p.logger.Printf("[PIPE] session %s: stale vector cleanup failed, continuing: %v", session, err)
	} else if deleted > 0 {
		p.logger.Printf("[PIPE] session %s: cleared %d stale vectors", session, deleted)
	}

	text, err := p.extractor.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return 0, domain.ErrEmptyDocument
	}

	chunks := p.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, domain.ErrNoContent
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	results, err := p.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	records := make([]domain.VectorRecord, 0, len(chunks))
	for i, res := range results {
		if res.Skipped {
			continue
		}
		records = append(records, domain.VectorRecord{
			ID:     domain.RecordID(session, chunks[i].Index),
			Vector: res.Vector,
			Metadata: domain.Metadata{
				Text:       res.Text,
				Source:     filename,
				ChunkIndex: chunks[i].Index,
				Session:    session,
				UploadedAt: now,
			},
		})
	}
	if len(records) == 0 {
		return 0, domain.ErrNoContent
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return 0, err
	}
	p.logger.Printf("[PIPE] session %s: indexed %d/%d chunks from %s", session, len(records), len(chunks), filename)
	return len(records), nil
}

// Ask answers a question against the session's document. Zero matches
// yield the canned no-information answer with empty sources.
func (p *Pipeline) Ask(ctx context.Context, question, session string, topK int) (domain.Answer, error) {
	if session == "" || question == "" {
		return domain.Answer{}, domain.ErrMissingInput
	}
	unlock := p.lockSession(session)
	defer unlock()

	if topK <= 0 {
		topK = DefaultTopK
	}
	clean := textnorm.Normalize(question)
	if clean == "" {
		return domain.Answer{}, domain.ErrEmptyQuestion
	}

	vec, err := p.embedder.Embed(ctx, clean)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}
	matches, err := p.store.Query(ctx, vec, topK, session)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("vector query: %w", err)
	}
	if len(matches) == 0 {
		return domain.Answer{Text: NoInfoAnswer, Sources: []domain.Source{}}, nil
	}

	answer, err := p.generator.Generate(ctx, buildPrompt(question, matches))
	if err != nil {
		return domain.Answer{}, err
	}
	sources := make([]domain.Source, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, domain.Source{
			Source:     m.Record.Metadata.Source,
			ChunkIndex: m.Record.Metadata.ChunkIndex,
			Session:    m.Record.Metadata.Session,
		})
	}
	return domain.Answer{Text: answer, Sources: sources}, nil
}

// ClearSession removes the session's vectors. Unlike the implicit
// pre-upload cleanup, an explicit clear reports failures.
func (p *Pipeline) ClearSession(ctx context.Context, session string) (int, error) {
	if session == "" {
		return 0, domain.ErrMissingInput
	}
	unlock := p.lockSession(session)
	defer unlock()
	return p.store.DeleteSession(ctx, session)
}

// SessionInfo reports whether the session has any vectors, and how
// many.
func (p *Pipeline) SessionInfo(ctx context.Context, session string) (bool, int, error) {
	if session == "" {
		return false, 0, domain.ErrMissingInput
	}
	n, err := p.store.Count(ctx, session)
	if err != nil {
		return false, 0, err
	}
	return n > 0, n, nil
}

// buildPrompt joins the ranked match texts with a delimiter line and
// appends the user's original, un-normalized question.
func buildPrompt(question string, matches []domain.QueryMatch) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Record.Metadata.Text)
	}
	var sb strings.Builder
	sb.WriteString(promptPreamble)
	sb.WriteString(strings.Join(parts, contextDelimiter))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
