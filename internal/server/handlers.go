package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vidsage/internal/agent"
	"vidsage/internal/index"
	"vidsage/internal/logging"
	"vidsage/internal/transcript"
)

type ingestRequest struct {
	SourceID string `json:"source_id"`
	VideoURL string `json:"video_url"`
}

type ingestResponse struct {
	Status   index.IngestStatus `json:"status"`
	SourceID string             `json:"source_id"`
}

type queryRequest struct {
	Text         string `json:"text"`
	SessionID    string `json:"session_id"`
	SourceFilter string `json:"source_filter"`
	TopK         int    `json:"top_k"`
}

type traceEntryView struct {
	Step   int    `json:"step"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type queryResponse struct {
	State      string                `json:"state"`
	Answer     string                `json:"answer"`
	Values     []string              `json:"values,omitempty"`
	Message    string                `json:"message,omitempty"`
	Contexts   []agent.ContextWindow `json:"contexts,omitempty"`
	Citations  []string              `json:"citations,omitempty"`
	Trace      []traceEntryView      `json:"trace,omitempty"`
	Iterations int                   `json:"iterations"`
	SessionID  string                `json:"session_id"`
}

type healthResponse struct {
	Status        string   `json:"status"`
	IndexSize     int      `json:"index_size"`
	UniqueSources int      `json:"unique_sources"`
	SourceIDs     []string `json:"source_ids"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sourceID := req.SourceID
	if sourceID == "" && req.VideoURL != "" {
		id, err := transcript.ExtractVideoID(req.VideoURL)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		sourceID = id
	}
	if sourceID == "" {
		respondError(w, http.StatusBadRequest, "source_id or video_url is required")
		return
	}

	status, _ := s.worker.Ingest(sourceID)
	s.metrics.IngestJobs.WithLabelValues(string(status)).Inc()
	s.log.Infow("ingest requested", "source_id", sourceID, "status", status)

	code := http.StatusAccepted
	if status == index.IngestAlreadyIndexed {
		code = http.StatusOK
	}
	respondJSON(w, code, ingestResponse{Status: status, SourceID: sourceID})
}

func (s *Server) handleJobPoll(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "source_id")
	job := s.tracker.Poll(sourceID)
	code := http.StatusOK
	if job.Status == index.StatusNotFound {
		code = http.StatusNotFound
	}
	respondJSON(w, code, job)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	outcome := s.orchestrator.Handle(r.Context(), agent.Request{
		ID:           uuid.NewString(),
		SessionID:    req.SessionID,
		Text:         req.Text,
		SourceFilter: req.SourceFilter,
		TopK:         req.TopK,
	})

	s.metrics.RequestsTotal.WithLabelValues(string(outcome.State)).Inc()
	s.metrics.Iterations.Observe(float64(outcome.Iterations))
	for _, entry := range outcome.Trace {
		s.metrics.StepDuration.Observe(entry.Elapsed.Seconds())
	}
	if len(outcome.Contexts) > 0 {
		s.metrics.RetrievalTopK.Observe(float64(len(outcome.Contexts)))
	}

	if outcome.Err != nil && errors.Is(outcome.Err, agent.ErrInvalidInput) {
		respondError(w, http.StatusBadRequest, outcome.Message)
		return
	}

	resp := queryResponse{
		State:      string(outcome.State),
		Answer:     outcome.Answer,
		Values:     outcome.Values,
		Message:    outcome.Message,
		Contexts:   outcome.Contexts,
		Iterations: outcome.Iterations,
		SessionID:  req.SessionID,
	}
	for _, c := range outcome.Contexts {
		resp.Citations = append(resp.Citations, fmt.Sprintf("%s@%.0fs", c.SourceID, c.Start))
	}
	for _, entry := range outcome.Trace {
		resp.Trace = append(resp.Trace, traceEntryView{
			Step:   entry.Step,
			Status: string(entry.Status),
			Result: entry.Result,
			Error:  entry.Err,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.retriever.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		IndexSize:     stats.IndexSize,
		UniqueSources: stats.UniqueSources,
		SourceIDs:     stats.SourceIDs,
	})
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Get(logging.CategoryServer).Warnw("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}
