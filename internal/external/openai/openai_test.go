package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/pkg/config"
	"github.com/manoharb30/insight-lookinsight/pkg/httputil"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := &config.Config{
		Env:      "test",
		LogLevel: "error",
		OpenAI: config.OpenAIConfig{
			APIKey:         "test-key",
			BaseURL:        server.URL,
			EmbeddingModel: "text-embedding-3-small",
			CheckModel:     "gpt-4o-mini",
			MaxConcurrent:  4,
		},
	}
	log := logger.Discard()
	return NewClient(cfg, httputil.New(cfg, log).DisableRetry(), log)
}

func embeddingHandler(t *testing.T, vectorFor func(text string) []float32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]datum, len(req.Input))
		for i, text := range req.Input {
			data[i] = datum{Index: i, Embedding: vectorFor(text)}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}
}

func TestEmbedBatch(t *testing.T) {
	server := httptest.NewServer(embeddingHandler(t, func(text string) []float32 {
		return []float32{float32(len(text)), 1, 0}
	}))
	defer server.Close()

	c := newTestClient(t, server)
	vectors, err := c.EmbedBatch(context.Background(), []string{"ab", "abcd"})

	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(2), vectors[0][0])
	assert.Equal(t, float32(4), vectors[1][0])
}

func TestEmbed_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.Embed(context.Background(), "anything")

	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrRateLimited))
}

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name    string
		content string
		verify  func(t *testing.T, check *contracts.ClassificationCheck)
	}{
		{
			name:    "valid verdict",
			content: `{"is_valid": true, "corrected_type": null, "corrected_severity": null, "rejection_reason": null, "confidence": 0.93}`,
			verify: func(t *testing.T, check *contracts.ClassificationCheck) {
				assert.True(t, check.IsValid)
				assert.Nil(t, check.CorrectedType)
				assert.InDelta(t, 0.93, check.Confidence, 1e-9)
			},
		},
		{
			name:    "rejection with reason",
			content: `{"is_valid": false, "corrected_type": null, "corrected_severity": null, "rejection_reason": "planned retirement", "confidence": 0.88}`,
			verify: func(t *testing.T, check *contracts.ClassificationCheck) {
				assert.False(t, check.IsValid)
				assert.Equal(t, "planned retirement", check.RejectionReason)
			},
		},
		{
			name:    "correction to known type",
			content: `{"is_valid": true, "corrected_type": "board_resignation", "corrected_severity": 4, "rejection_reason": null, "confidence": 0.8}`,
			verify: func(t *testing.T, check *contracts.ClassificationCheck) {
				require.NotNil(t, check.CorrectedType)
				assert.Equal(t, contracts.BoardResignation, *check.CorrectedType)
				require.NotNil(t, check.CorrectedSeverity)
				assert.Equal(t, 4, *check.CorrectedSeverity)
			},
		},
		{
			name:    "unknown corrected type discarded",
			content: `{"is_valid": true, "corrected_type": "SOMETHING_NEW", "corrected_severity": 99, "rejection_reason": null, "confidence": 0.8}`,
			verify: func(t *testing.T, check *contracts.ClassificationCheck) {
				assert.Nil(t, check.CorrectedType)
				assert.Nil(t, check.CorrectedSeverity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"choices": []map[string]interface{}{
						{"message": map[string]string{"content": tt.content}},
					},
				})
			}))
			defer server.Close()

			checker := NewChecker(newTestClient(t, server), logger.Discard())
			check, err := checker.Check(context.Background(), contracts.CEODeparture,
				"the chief executive officer resigned", 6,
				contracts.FilingContext{FilingType: "8-K", FilingDate: "2024-03-01", Person: "Jordan Smith"})

			require.NoError(t, err)
			tt.verify(t, check)
		})
	}
}

type fakeSource struct {
	texts map[string]string
	calls int
}

func (f *fakeSource) GetSourceText(ctx context.Context, documentID string) (string, error) {
	f.calls++
	text, ok := f.texts[documentID]
	if !ok {
		return "", fmt.Errorf("no such document %s", documentID)
	}
	return text, nil
}

func TestSearcher_NearestChunks(t *testing.T) {
	// Vector encodes whether the text mentions bankruptcy, so the query for
	// it ranks the matching chunk first.
	vectorFor := func(text string) []float32 {
		hit := float32(0)
		for i := 0; i+10 <= len(text); i++ {
			if text[i:i+10] == "bankruptcy" {
				hit = 1
				break
			}
		}
		return []float32{hit, 1 - hit, 0.5}
	}

	server := httptest.NewServer(embeddingHandler(t, vectorFor))
	defer server.Close()

	source := &fakeSource{texts: map[string]string{
		"acc-1": "the company filed a voluntary petition for bankruptcy protection. " +
			"unrelated routine disclosure about office leases and equipment purchases.",
	}}
	s := NewSearcher(newTestClient(t, server), source, logger.Discard())

	query := []float32{1, 0, 0.5}
	chunks, err := s.NearestChunks(context.Background(), query, "acc-1", 1, 0.5)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "bankruptcy")

	// Second search reuses the cached index.
	_, err = s.NearestChunks(context.Background(), query, "acc-1", 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
}

func TestSearcher_MissingDocument(t *testing.T) {
	server := httptest.NewServer(embeddingHandler(t, func(string) []float32 { return []float32{1} }))
	defer server.Close()

	s := NewSearcher(newTestClient(t, server), &fakeSource{texts: map[string]string{}}, logger.Discard())

	_, err := s.NearestChunks(context.Background(), []float32{1}, "nope", 1, 0.5)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosine(tt.a, tt.b), 1e-9)
		})
	}
}
