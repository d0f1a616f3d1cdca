package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
	"github.com/prepcoach/prepcoach/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterOracleMetrics()
	os.Exit(m.Run())
}

// embeddingResponse mirrors the OpenAI-compatible embedding response.
type embeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingServer(t *testing.T, vecs ...[]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := embeddingResponse{Object: "list", Model: "test-model"}
		for i, vec := range vecs {
			resp.Data = append(resp.Data, struct {
				Object    string    `json:"object"`
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Object: "embedding", Embedding: vec, Index: i})
		}
		resp.Usage.PromptTokens = 10
		resp.Usage.TotalTokens = 10

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}
	server := embeddingServer(t, expectedVec)
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "test-model",
		Dimensions: 4,
		Logger:     zap.NewNop(),
	})

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
	if result.TotalTokens != 10 || result.PromptTokens != 10 {
		t.Errorf("usage not carried through: %+v", result)
	}
}

func TestEmbedder_EmbedAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail": "upstream model unavailable"}`))
	}))
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedder_EmbedEmptyResponse(t *testing.T) {
	server := embeddingServer(t)
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedder_BatchEmbed(t *testing.T) {
	server := embeddingServer(t, []float32{1, 0}, []float32{0, 1})
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	result, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if len(result.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result.Embeddings))
	}
	if result.Embeddings[1][1] != 1 {
		t.Errorf("result order does not match input order: %v", result.Embeddings)
	}
}

func TestEmbedder_BatchEmbedSizeMismatch(t *testing.T) {
	server := embeddingServer(t, []float32{1, 0})
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestJudge_Generate(t *testing.T) {
	const verdict = `{"score": 85, "breakdown": {"correctness": 35}, "feedback": "ok"}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("expected single user message, got %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": ` +
			mustJSON(verdict) + `}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150}
		}`))
	}))
	defer server.Close()

	judge := NewJudge(&JudgeConfig{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		Temperature: 0.3,
		MaxTokens:   1024,
		Logger:      zap.NewNop(),
	})

	got, err := judge.Generate(context.Background(), "evaluate this")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != verdict {
		t.Errorf("response = %q, want %q", got, verdict)
	}
}

func TestJudge_GenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	judge := NewJudge(&JudgeConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := judge.Generate(context.Background(), "evaluate this")
	if !errors.Is(err, domain.ErrJudgeProviderError) {
		t.Fatalf("err = %v, want ErrJudgeProviderError", err)
	}
}

func TestTranscriber_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "I used a hash map for constant lookups."}`))
	}))
	defer server.Close()

	wavPath := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(wavPath, []byte("RIFF fake wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTranscriber(&TranscriberConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "whisper-1",
		Logger:  zap.NewNop(),
	})

	text, err := tr.Transcribe(context.Background(), wavPath)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "I used a hash map for constant lookups." {
		t.Errorf("unexpected transcript: %q", text)
	}
}

func TestTranscriber_EmptyTextIsValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": ""}`))
	}))
	defer server.Close()

	wavPath := filepath.Join(t.TempDir(), "silent.wav")
	if err := os.WriteFile(wavPath, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTranscriber(&TranscriberConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "whisper-1",
		Logger:  zap.NewNop(),
	})

	text, err := tr.Transcribe(context.Background(), wavPath)
	if err != nil {
		t.Fatalf("silent audio must not be an error: %v", err)
	}
	if text != "" {
		t.Errorf("transcript = %q, want empty", text)
	}
}

func TestTranscriber_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "unsupported format", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	wavPath := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(wavPath, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTranscriber(&TranscriberConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "whisper-1",
		Logger:  zap.NewNop(),
	})

	_, err := tr.Transcribe(context.Background(), wavPath)
	if !errors.Is(err, domain.ErrTranscriptionFailed) {
		t.Fatalf("err = %v, want ErrTranscriptionFailed", err)
	}
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
