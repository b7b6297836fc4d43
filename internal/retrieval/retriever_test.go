package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"vidsage/internal/vectorstore"
)

// hashEngine maps known texts to fixed unit vectors.
type hashEngine struct {
	vectors map[string][]float32
}

func (h *hashEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := h.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func (h *hashEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = h.Embed(ctx, t)
	}
	return out, nil
}

func (h *hashEngine) Dimensions() int { return 4 }
func (h *hashEngine) Name() string    { return "hash" }

func TestRetrieveReturnsExpandedWindows(t *testing.T) {
	store, err := vectorstore.Open(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	chunks := []vectorstore.Chunk{
		{SourceID: "v1", Seq: 0, Text: "intro", Start: 0, End: 30},
		{SourceID: "v1", Seq: 1, Text: "the key point", Start: 30, End: 60},
		{SourceID: "v1", Seq: 2, Text: "aftermath", Start: 60, End: 90},
	}
	vectors := [][]float32{
		{0, 1, 0, 0},
		{1, 0, 0, 0},
		{0, 0, 1, 0},
	}
	if err := store.Add(ctx, chunks, vectors); err != nil {
		t.Fatal(err)
	}

	engine := &hashEngine{vectors: map[string][]float32{
		"what was the key point": {1, 0, 0, 0},
	}}
	r := New(engine, store)

	windows, err := r.Retrieve(ctx, "what was the key point", 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	w := windows[0]
	if w.SourceID != "v1" {
		t.Fatalf("source = %q", w.SourceID)
	}
	// top hit at seq 1 expands to seq 0..2
	if w.Text != "intro the key point aftermath" {
		t.Fatalf("window text = %q", w.Text)
	}
	if w.Start != 0 || w.End != 90 {
		t.Fatalf("window span = [%v, %v]", w.Start, w.End)
	}
	if w.Score != 1 {
		t.Fatalf("score = %v, want 1 for an exact match", w.Score)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	store, err := vectorstore.Open(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	r := New(&hashEngine{}, store)
	windows, err := r.Retrieve(context.Background(), "anything", 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 0 {
		t.Fatalf("got %d windows from empty index", len(windows))
	}
}
