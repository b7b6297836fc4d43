// vidsage ingests video transcripts into a searchable index and
// answers questions over them through a perception/decision/action
// pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vidsage/internal/agent"
	"vidsage/internal/config"
	"vidsage/internal/embedding"
	"vidsage/internal/index"
	"vidsage/internal/llm"
	"vidsage/internal/logging"
	"vidsage/internal/memory"
	"vidsage/internal/metrics"
	"vidsage/internal/retrieval"
	"vidsage/internal/server"
	"vidsage/internal/tools"
	"vidsage/internal/transcript"
	"vidsage/internal/vectorstore"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vidsage",
	Short: "vidsage - transcript-grounded question answering",
	Long: `vidsage indexes video transcripts for semantic search and answers
questions over them. Questions run through a staged pipeline: the
request is interpreted, remembered facts are recalled, a tool plan is
validated and executed, and the result is shaped into an answer.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(level, !cfg.Logging.Development); err != nil {
			return err
		}
		logging.Get(logging.CategoryBoot).Infow("configuration loaded",
			"name", cfg.Name, "version", cfg.Version, "embedding", cfg.Embedding.Provider)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		srv := server.New(app.orchestrator, app.worker, app.tracker, app.retriever, app.metrics)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(cfg.Server.Addr) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		sourceFilter, _ := cmd.Flags().GetString("source")

		out := app.orchestrator.Handle(cmd.Context(), agent.Request{
			ID:           uuid.NewString(),
			SessionID:    sessionID,
			Text:         strings.Join(args, " "),
			SourceFilter: sourceFilter,
		})
		if out.State == agent.StateClarifying {
			fmt.Println(out.Message)
			return nil
		}
		if out.Err != nil && out.Answer == "" {
			return fmt.Errorf("%s: %w", out.State, out.Err)
		}

		if out.Answer != "" {
			fmt.Println(out.Answer)
		} else if out.Message != "" {
			fmt.Println(out.Message)
		}
		for _, c := range out.Contexts {
			fmt.Printf("  [%s @ %.0fs] %s\n", c.SourceID, c.Start, c.Text)
		}
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index [video-url-or-id]",
	Short: "Ingest a video transcript into the search index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		sourceID, err := transcript.ExtractVideoID(args[0])
		if err != nil {
			return err
		}

		status, job := app.worker.Ingest(sourceID)
		if status == index.IngestAlreadyIndexed {
			fmt.Printf("%s already indexed (%d chunks)\n", sourceID, job.TotalChunks)
			return nil
		}

		fmt.Printf("indexing %s", sourceID)
		for {
			job = app.tracker.Poll(sourceID)
			if job.Terminal() {
				break
			}
			fmt.Print(".")
			time.Sleep(200 * time.Millisecond)
		}
		app.worker.Wait()
		fmt.Println()

		if job.Status == index.StatusFailed {
			return fmt.Errorf("ingestion failed: %s", job.Error)
		}
		fmt.Printf("indexed %s: %d chunks\n", sourceID, job.TotalChunks)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := vectorstore.Open(cfg.Storage.IndexPath)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(stats)
	},
}

// app holds the wired service graph for one process.
type app struct {
	orchestrator *agent.Orchestrator
	worker       *index.Worker
	tracker      *index.Tracker
	retriever    *retrieval.Retriever
	metrics      *metrics.Metrics

	facts *memory.Store
	store *vectorstore.Store
}

func buildApp() (*app, error) {
	facts, err := memory.Open(cfg.Storage.FactsPath)
	if err != nil {
		return nil, fmt.Errorf("open fact store: %w", err)
	}

	store, err := vectorstore.Open(cfg.Storage.IndexPath)
	if err != nil {
		facts.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
	})
	if err != nil {
		facts.Close()
		store.Close()
		return nil, err
	}

	completer := llm.NewGeminiClientWithConfig(llm.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLMTimeout(),
	})

	registry := tools.NewRegistry()
	tools.RegisterArithmetic(registry)
	tools.RegisterAlgebra(registry)
	tools.RegisterGeometry(registry)
	tools.RegisterLogic(registry)
	tools.RegisterStatistics(registry)
	tools.RegisterNotify(registry, tools.NewNotifier())

	m := metrics.New()
	retriever := retrieval.New(engine, store)
	executor := agent.NewExecutor(registry, retriever, cfg.StepTimeout())
	executor.SetObserver(func(tool string, status agent.StepStatus, elapsed time.Duration) {
		m.ToolCallsTotal.WithLabelValues(tool, string(status)).Inc()
	})

	fetcher := transcript.NewYouTubeFetcher("en")
	fetcher.SetTimeout(cfg.FetchTimeout())

	tracker := index.NewTracker()
	worker := index.NewWorker(
		fetcher,
		engine,
		store,
		tracker,
		index.WorkerConfig{
			MaxChunkSeconds: cfg.Ingest.MaxChunkSeconds,
			MaxChunkChars:   cfg.Ingest.MaxChunkChars,
			JobTimeout:      cfg.JobTimeout(),
		},
	)

	orchestrator := agent.NewOrchestrator(
		agent.NewPerceiver(completer),
		agent.NewDecider(completer),
		executor,
		facts,
		registry,
		agent.Settings{
			MaxIterations:  cfg.Engine.MaxIterations,
			FactQueryLimit: cfg.Engine.FactQueryLimit,
			DefaultTopK:    cfg.Engine.RetrievalTopK,
		},
	)

	return &app{
		orchestrator: orchestrator,
		worker:       worker,
		tracker:      tracker,
		retriever:    retriever,
		metrics:      m,
		facts:        facts,
		store:        store,
	}, nil
}

func (a *app) Close() {
	a.worker.Wait()
	a.facts.Close()
	a.store.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "vidsage.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	askCmd.Flags().String("session", "", "session id for memory continuity")
	askCmd.Flags().String("source", "", "restrict retrieval to one source id")

	rootCmd.AddCommand(serveCmd, askCmd, indexCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
