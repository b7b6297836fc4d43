// Package retrieval glues the embedding engine and the vector store
// into the search surface the action stage dispatches to.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"vidsage/internal/agent"
	"vidsage/internal/embedding"
	"vidsage/internal/logging"
	"vidsage/internal/vectorstore"
)

// Retriever answers semantic queries over indexed transcripts with
// context-expanded windows.
type Retriever struct {
	engine embedding.Engine
	store  *vectorstore.Store
	log    *zap.SugaredLogger
}

// New builds a retriever over the given engine and store.
func New(engine embedding.Engine, store *vectorstore.Store) *Retriever {
	return &Retriever{
		engine: engine,
		store:  store,
		log:    logging.Get(logging.CategoryStore),
	}
}

// Retrieve embeds the query, searches the index, and expands each hit
// with its sequence neighbours. Results arrive best score first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, sourceFilter string) ([]agent.ContextWindow, error) {
	vector, err := r.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, vector, k, sourceFilter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	windows, err := r.store.Expand(ctx, results)
	if err != nil {
		return nil, err
	}

	out := make([]agent.ContextWindow, len(windows))
	for i, w := range windows {
		out[i] = agent.ContextWindow{
			SourceID: w.SourceID,
			Text:     w.Text,
			Start:    w.Start,
			End:      w.End,
			Score:    w.Score,
		}
	}
	r.log.Debugw("retrieval complete", "query_len", len(query), "hits", len(results), "windows", len(out))
	return out, nil
}

// Stats exposes index statistics for the health endpoint.
func (r *Retriever) Stats(ctx context.Context) (vectorstore.Stats, error) {
	return r.store.Stats(ctx)
}
