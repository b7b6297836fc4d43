package index

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"vidsage/internal/embedding"
	"vidsage/internal/logging"
	"vidsage/internal/transcript"
	"vidsage/internal/vectorstore"
)

// IngestStatus is what an ingest request returns immediately.
type IngestStatus string

const (
	IngestStarted        IngestStatus = "started"
	IngestAlreadyIndexed IngestStatus = "already_indexed"
)

// WorkerConfig bounds the ingestion pipeline.
type WorkerConfig struct {
	MaxChunkSeconds float64
	MaxChunkChars   int
	JobTimeout      time.Duration
}

// Worker runs transcript ingestion in the background: fetch, chunk,
// embed, store. One ingest request is fire-and-forget; callers poll the
// tracker for progress.
type Worker struct {
	fetcher transcript.Fetcher
	engine  embedding.Engine
	store   *vectorstore.Store
	tracker *Tracker
	cfg     WorkerConfig

	group singleflight.Group
	wg    sync.WaitGroup
	log   *zap.SugaredLogger
}

// NewWorker wires the ingestion pipeline.
func NewWorker(fetcher transcript.Fetcher, engine embedding.Engine, store *vectorstore.Store, tracker *Tracker, cfg WorkerConfig) *Worker {
	if cfg.MaxChunkSeconds <= 0 {
		cfg.MaxChunkSeconds = 30
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = 500
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	return &Worker{
		fetcher: fetcher,
		engine:  engine,
		store:   store,
		tracker: tracker,
		cfg:     cfg,
		log:     logging.Get(logging.CategoryIndex),
	}
}

// Ingest requests ingestion of a source. Re-ingesting a source whose
// job already completed, or is still in flight, is a no-op that reports
// the existing job. The pipeline itself runs in a background goroutine.
func (w *Worker) Ingest(sourceID string) (IngestStatus, Job) {
	job, created := w.tracker.Begin(sourceID)
	if !created {
		if job.Status == StatusCompleted {
			return IngestAlreadyIndexed, job
		}
		return IngestStarted, job
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		// singleflight serializes concurrent ingestion of the same
		// attempt; different sources proceed in parallel. The key
		// includes the attempt so a retry after failure never joins
		// a still-unwinding previous run and gets wedged on its
		// stale result.
		w.group.Do(ingestKey(sourceID, job.Attempt), func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
			defer cancel()
			w.run(ctx, sourceID)
			return nil, nil
		})
	}()
	return IngestStarted, job
}

func ingestKey(sourceID string, attempt int) string {
	return sourceID + "#" + strconv.Itoa(attempt)
}

// Wait blocks until all in-flight ingestion goroutines finish. Used at
// shutdown and in tests.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, sourceID string) {
	w.tracker.Start(sourceID)
	w.log.Infow("ingestion started", "source_id", sourceID)

	segments, err := w.fetcher.Fetch(ctx, sourceID)
	if err != nil {
		w.fail(sourceID, fmt.Errorf("%w: fetch: %v", ErrIngestion, err))
		return
	}
	w.tracker.SetProgress(sourceID, 10)

	pieces := GroupSegments(segments, w.cfg.MaxChunkSeconds, w.cfg.MaxChunkChars)
	if len(pieces) == 0 {
		w.fail(sourceID, fmt.Errorf("%w: transcript produced no chunks", ErrIngestion))
		return
	}
	w.tracker.SetProgress(sourceID, 20)

	chunks := make([]vectorstore.Chunk, len(pieces))
	vectors := make([][]float32, len(pieces))
	for i, piece := range pieces {
		vec, err := w.engine.Embed(ctx, piece.Text)
		if err != nil {
			w.fail(sourceID, fmt.Errorf("%w: embed chunk %d: %v", ErrIngestion, i, err))
			return
		}
		chunks[i] = vectorstore.Chunk{
			SourceID: sourceID,
			Seq:      i,
			Text:     piece.Text,
			Start:    piece.Start,
			End:      piece.End,
		}
		vectors[i] = vec
		// 20..90 spans the embedding phase.
		w.tracker.SetProgress(sourceID, 20+(i+1)*70/len(pieces))
	}

	if err := w.store.Add(ctx, chunks, vectors); err != nil {
		w.fail(sourceID, fmt.Errorf("%w: store: %v", ErrIngestion, err))
		return
	}

	w.tracker.Complete(sourceID, len(chunks))
	w.log.Infow("ingestion completed", "source_id", sourceID, "chunks", len(chunks))
}

func (w *Worker) fail(sourceID string, err error) {
	w.log.Warnw("ingestion failed", "source_id", sourceID, "error", err)
	w.tracker.Fail(sourceID, err)
}
