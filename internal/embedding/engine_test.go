package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	if _, err := CosineSimilarity([]float32{1}, []float32{1, 2}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestCosineDistance(t *testing.T) {
	d, err := CosineDistance([]float32{1, 0}, []float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d) > 1e-9 {
		t.Fatalf("distance between identical vectors = %v, want 0", d)
	}
}

func TestNormalizeTaskType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"RETRIEVAL_DOCUMENT", "RETRIEVAL_DOCUMENT"},
		{"RETRIEVAL_QUERY", "RETRIEVAL_QUERY"},
		{"SEMANTIC_SIMILARITY", "SEMANTIC_SIMILARITY"},
		{"QUESTION_ANSWERING", "QUESTION_ANSWERING"},
		{"", "SEMANTIC_SIMILARITY"},
		{"CLUSTERING", "RETRIEVAL_DOCUMENT"},
	}
	for _, tt := range tests {
		if got := NormalizeTaskType(tt.in); got != tt.want {
			t.Fatalf("NormalizeTaskType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewEngineUnknownProvider(t *testing.T) {
	if _, err := NewEngine(Config{Provider: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	e, err := NewOllamaEngine(srv.URL, "embeddinggemma")
	if err != nil {
		t.Fatal(err)
	}
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 {
		t.Fatalf("got %d dims, want 3", len(vec))
	}
}

func TestOllamaEmbedErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e, _ := NewOllamaEngine(srv.URL, "missing")
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestOllamaEmbedBatchSequential(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1}})
	}))
	defer srv.Close()

	e, _ := NewOllamaEngine(srv.URL, "embeddinggemma")
	got, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || calls != 3 {
		t.Fatalf("got %d embeddings from %d calls, want 3/3", len(got), calls)
	}
}
