package openai

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/evidence"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// embedBatchSize caps chunks per embeddings request.
const embedBatchSize = 64

// Searcher implements contracts.EmbeddingSearcher with an in-memory,
// per-document chunk index. Documents are indexed lazily on first search:
// the source text is fetched, chunked and embedded once, then cached for
// the life of the process.
type Searcher struct {
	client *Client
	source contracts.DocumentSource
	logger *logger.Logger

	mu    sync.Mutex
	index map[string][]indexedChunk
}

type indexedChunk struct {
	text   string
	vector []float32
}

// NewSearcher creates a semantic searcher backed by the API client and a
// document source for lazy indexing.
func NewSearcher(client *Client, source contracts.DocumentSource, log *logger.Logger) *Searcher {
	return &Searcher{
		client: client,
		source: source,
		logger: log,
		index:  make(map[string][]indexedChunk),
	}
}

// Embed proxies single-text embedding to the API client.
func (s *Searcher) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.client.Embed(ctx, text)
}

// NearestChunks returns up to k chunks of the document whose cosine
// similarity to the query vector meets the threshold, best first.
func (s *Searcher) NearestChunks(ctx context.Context, vector []float32, documentID string, k int, threshold float64) ([]contracts.ScoredChunk, error) {
	chunks, err := s.chunksFor(ctx, documentID)
	if err != nil {
		return nil, err
	}

	scored := make([]contracts.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		sim := cosine(vector, c.vector)
		if sim >= threshold {
			scored = append(scored, contracts.ScoredChunk{Text: c.text, Similarity: sim})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// chunksFor returns the cached index for a document, building it on miss.
func (s *Searcher) chunksFor(ctx context.Context, documentID string) ([]indexedChunk, error) {
	s.mu.Lock()
	if cached, ok := s.index[documentID]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	text, err := s.source.GetSourceText(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s for indexing: %w", documentID, err)
	}

	chunks := evidence.SplitChunks(text, 0, 0)
	indexed := make([]indexedChunk, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vectors, err := s.client.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed document %s chunks: %w", documentID, err)
		}
		for i, v := range vectors {
			indexed = append(indexed, indexedChunk{text: texts[i], vector: v})
		}
	}

	s.mu.Lock()
	s.index[documentID] = indexed
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"document_id": documentID,
		"chunks":      len(indexed),
	}).Debug("Document indexed for semantic search")

	return indexed, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
