// Package answer wraps the Gemini API for the two retrieval-side operations:
// embedding chunk and query text, and generating grounded answers from
// retrieved chunks.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"filingrag/internal/index"
)

const systemPrompt = `You are a financial analyst expert. Use the provided context to answer questions about financial documents.
Provide specific, accurate answers based on the context. If the information is not in the context, say so clearly.
Always cite which company and year you're referencing.`

const (
	// Gemini batch embedding limit.
	embedBatchSize = 100

	maxAttempts = 3
)

// Client talks to the Gemini API.
type Client struct {
	genai      *genai.Client
	generative string
	embedding  string
	log        *slog.Logger
}

func NewClient(ctx context.Context, apiKey, generativeName, embeddingName string, log *slog.Logger) (*Client, error) {
	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		genai:      gc,
		generative: generativeName,
		embedding:  embeddingName,
		log:        log.With("component", "answer"),
	}, nil
}

func (c *Client) Close() error {
	return c.genai.Close()
}

// EmbedChunks embeds texts in batches and returns one vector per input, in
// order. Batches are retried with backoff before failing the whole call.
func (c *Client) EmbedChunks(ctx context.Context, texts []string) ([][]float32, error) {
	em := c.genai.EmbeddingModel(c.embedding)

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		var res *genai.BatchEmbedContentsResponse
		err := c.retry(ctx, "batch embed", func() error {
			var err error
			res, err = em.BatchEmbedContents(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("embed batch at %d: got %d vectors for %d inputs", start, len(res.Embeddings), end-start)
		}
		for _, e := range res.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := c.genai.EmbeddingModel(c.embedding)

	var res *genai.EmbedContentResponse
	err := c.retry(ctx, "embed query", func() error {
		var err error
		res, err = em.EmbedContent(ctx, genai.Text(text))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("embed query: empty response")
	}
	return res.Embedding.Values, nil
}

// Source describes where part of an answer came from.
type Source struct {
	Company      string  `json:"company,omitempty"`
	Year         string  `json:"year,omitempty"`
	SectionTitle string  `json:"section_title"`
	Filename     string  `json:"filename"`
	Score        float64 `json:"score"`
}

// Result is a generated answer with its supporting sources.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Answer generates a grounded answer to question from the retrieved matches.
func (c *Client) Answer(ctx context.Context, question string, matches []index.Match) (Result, error) {
	if len(matches) == 0 {
		return Result{Answer: "No relevant information was found in the indexed filings."}, nil
	}

	var ctxBuilder strings.Builder
	sources := make([]Source, 0, len(matches))
	for i, m := range matches {
		company := m.Chunk.Meta.Company
		if company == "" {
			company = "Unknown"
		}
		year := m.Chunk.Meta.Year
		if year == "" {
			year = "Unknown"
		}
		fmt.Fprintf(&ctxBuilder, "Document %d (Company: %s, Year: %s):\n%s\n\n", i+1, company, year, m.Chunk.Text)
		sources = append(sources, Source{
			Company:      m.Chunk.Meta.Company,
			Year:         m.Chunk.Meta.Year,
			SectionTitle: m.Chunk.Meta.SectionTitle,
			Filename:     m.Chunk.Meta.Filename,
			Score:        m.Score,
		})
	}

	model := c.genai.GenerativeModel(c.generative)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.SetTemperature(0.1)

	prompt := fmt.Sprintf("Context:\n%s\nQuestion: %s", ctxBuilder.String(), question)

	var resp *genai.GenerateContentResponse
	err := c.retry(ctx, "generate answer", func() error {
		var err error
		resp, err = model.GenerateContent(ctx, genai.Text(prompt))
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate answer: %w", err)
	}

	return Result{Answer: responseText(resp), Sources: sources}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// retry runs fn up to maxAttempts times with exponential backoff.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn("retrying gemini call", "op", op, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}
