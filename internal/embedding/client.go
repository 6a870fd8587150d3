package embedding

import (
	"context"
	"io"
	"log"
	"time"

	"docchat/internal/domain"
	"docchat/internal/textnorm"
)

const (
	// BatchSize is how many texts go into one remote batch call.
	BatchSize = 10
	// batchDelay separates consecutive batch calls to stay under the
	// provider's rate limit. Not applied between fallback calls.
	batchDelay = 200 * time.Millisecond
)

// Result pairs one input text with its embedding outcome. Skipped
// marks inputs that were dropped by cleaning or by a failed fallback
// call; callers align chunk i with result i and never truncate.
type Result struct {
	Text    string
	Vector  []float32
	Skipped bool
}

// Client wraps a remote embedding provider with input cleaning,
// fixed-size batching and per-item fallback on batch failure.
type Client struct {
	provider domain.Embedder
	logger   *log.Logger
	delay    time.Duration
}

func NewClient(provider domain.Embedder, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{provider: provider, logger: logger, delay: batchDelay}
}

// EmbedAll embeds every usable input and returns one Result per input,
// in input order. Returns domain.ErrNoValidInput when cleaning drops
// everything. A failed batch degrades to per-item calls; items that
// still fail are marked Skipped rather than failing the whole run.
func (c *Client) EmbedAll(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))
	var valid []int
	for i, t := range texts {
		clean := textnorm.Normalize(t)
		results[i] = Result{Text: clean, Skipped: true}
		if clean != "" {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		return nil, domain.ErrNoValidInput
	}

	batches := (len(valid) + BatchSize - 1) / BatchSize
	for b := 0; b < batches; b++ {
		lo := b * BatchSize
		hi := lo + BatchSize
		if hi > len(valid) {
			hi = len(valid)
		}
		batch := valid[lo:hi]
		batchTexts := make([]string, len(batch))
		for j, idx := range batch {
			batchTexts[j] = results[idx].Text
		}

		vecs, err := c.provider.EmbedBatch(ctx, batchTexts)
		if err != nil || len(vecs) != len(batch) {
			c.logger.Printf("[EMBED] batch %d/%d failed (%d texts): %v; retrying items individually", b+1, batches, len(batch), err)
			embedded := 0
			for _, idx := range batch {
				v, ierr := c.provider.Embed(ctx, results[idx].Text)
				if ierr != nil || len(v) == 0 {
					c.logger.Printf("[EMBED] skipping item after fallback failure: %v", ierr)
					continue
				}
				results[idx].Vector = v
				results[idx].Skipped = false
				embedded++
			}
			c.logger.Printf("[EMBED] batch %d/%d fallback: %d/%d embedded", b+1, batches, embedded, len(batch))
		} else {
			for j, idx := range batch {
				results[idx].Vector = vecs[j]
				results[idx].Skipped = false
			}
			c.logger.Printf("[EMBED] batch %d/%d: %d texts embedded", b+1, batches, len(batch))
		}

		if hi < len(valid) {
			time.Sleep(c.delay)
		}
	}
	return results, nil
}

// Embed embeds a single already-cleaned text, as used for questions.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.provider.Embed(ctx, text)
}

// Dimension reports the provider's vector dimension.
func (c *Client) Dimension() int { return c.provider.Dimension() }
