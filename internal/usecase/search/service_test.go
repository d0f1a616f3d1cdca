package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prepcoach/prepcoach/internal/domain"
	"github.com/prepcoach/prepcoach/internal/domain/search/filter"
)

// --- Mocks ---

type mockCorpus struct {
	questions []*domain.Question
}

func (m *mockCorpus) All() []*domain.Question { return m.questions }
func (m *mockCorpus) Count() int              { return len(m.questions) }

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 7}, nil
}

func sampleCorpus() *mockCorpus {
	// The three-record scenario: unit vectors on distinct axes plus one
	// near-duplicate of record 1.
	jc := &domain.JudgeContext{OptimalSolutionCode: "secret"}
	return &mockCorpus{questions: []*domain.Question{
		{ID: "q1", Title: "Two Sum", Embedding: []float32{1, 0, 0, 0}, JudgeContext: jc,
			Metadata: domain.Metadata{Difficulty: domain.Easy, Topics: []string{"Array"}, FrequencyRating: 5}},
		{ID: "q2", Title: "Course Schedule", Embedding: []float32{0, 1, 0, 0}, JudgeContext: jc,
			Metadata: domain.Metadata{Difficulty: domain.Medium, Topics: []string{"Graph"}, FrequencyRating: 3}},
		{ID: "q3", Title: "3Sum", Embedding: []float32{0.9, 0.1, 0, 0}, JudgeContext: jc,
			Metadata: domain.Metadata{Difficulty: domain.Medium, Topics: []string{"Array"}, FrequencyRating: 4}},
	}}
}

// --- Tests ---

func TestSearch_EndToEndRanking(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	svc := New(sampleCorpus(), embed)

	resp, err := svc.Search(context.Background(), "array sum", filter.Filters{}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("want 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "q1" || resp.Results[1].ID != "q3" {
		t.Fatalf("want [q1 q3], got [%s %s]", resp.Results[0].ID, resp.Results[1].ID)
	}
	if !almost(resp.Results[0].SearchScore, 1.0, 1e-6) {
		t.Errorf("q1 score = %f, want 1.0", resp.Results[0].SearchScore)
	}
	if !almost(resp.Results[1].SearchScore, 0.9939, 1e-3) {
		t.Errorf("q3 score = %f, want ~0.994", resp.Results[1].SearchScore)
	}
	if embed.calls != 1 {
		t.Errorf("embedder called %d times, want exactly 1", embed.calls)
	}
}

func TestSearch_EmptyCandidatesShortCircuit(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	svc := New(sampleCorpus(), embed)

	resp, err := svc.Search(context.Background(), "anything",
		filter.Filters{Difficulty: domain.Hard}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Results) != 0 {
		t.Fatalf("want empty results, got %d", len(resp.Results))
	}
	if resp.Metadata.CandidatesCount != 0 {
		t.Errorf("candidatesCount = %d, want 0", resp.Metadata.CandidatesCount)
	}
	if resp.Metadata.TotalCount != 3 {
		t.Errorf("totalCount = %d, want 3", resp.Metadata.TotalCount)
	}
	if embed.calls != 0 {
		t.Errorf("embedding oracle called %d times on empty candidates, want 0", embed.calls)
	}
}

func TestSearch_FiltersNarrowBeforeRanking(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	svc := New(sampleCorpus(), embed)

	resp, err := svc.Search(context.Background(), "graph",
		filter.Filters{Difficulty: domain.Medium}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Metadata.CandidatesCount != 2 {
		t.Fatalf("candidatesCount = %d, want 2", resp.Metadata.CandidatesCount)
	}
	for _, r := range resp.Results {
		if r.ID == "q1" {
			t.Error("q1 filtered out by difficulty but present in results")
		}
	}
}

func TestSearch_EmbeddingFailurePropagates(t *testing.T) {
	embed := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := New(sampleCorpus(), embed)

	_, err := svc.Search(context.Background(), "anything", filter.Filters{}, 5)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1}}
	svc := New(sampleCorpus(), embed)

	_, err := svc.Search(context.Background(), "", filter.Filters{}, 5)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if embed.calls != 0 {
		t.Error("embedding oracle called for invalid request")
	}
}

func TestSearch_ResultsAreSanitized(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	svc := New(sampleCorpus(), embed)

	resp, err := svc.Search(context.Background(), "array", filter.Filters{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	for _, forbidden := range []string{"judge_context", "\"embedding\"", "_metadata", "optimal_solution", "secret"} {
		if strings.Contains(body, forbidden) {
			t.Errorf("search response leaks %q", forbidden)
		}
	}
	if !strings.Contains(body, "_searchScore") {
		t.Error("search response missing _searchScore")
	}
}

func TestSearch_TelemetryEchoesQueryAndFilters(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	svc := New(sampleCorpus(), embed)

	f := filter.Filters{Topics: []string{"Array"}}
	resp, err := svc.Search(context.Background(), "two sum", f, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Metadata.Query != "two sum" {
		t.Errorf("telemetry query = %q", resp.Metadata.Query)
	}
	if len(resp.Metadata.Filters.Topics) != 1 || resp.Metadata.Filters.Topics[0] != "Array" {
		t.Errorf("telemetry filters = %+v", resp.Metadata.Filters)
	}
	if resp.Metadata.SearchTimeMs < 0 {
		t.Errorf("searchTimeMs = %d", resp.Metadata.SearchTimeMs)
	}
}
