package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docq-go/internal/logging"
	"github.com/54b3r/docq-go/internal/rag"
	"github.com/54b3r/docq-go/internal/store"
)

// historyDepth is the number of stored turns injected per session question.
const historyDepth = 10

// handleQuery handles POST /api/query. With "stream": true in the body the
// response is Server-Sent Events (token frames, then a sources frame, then a
// done frame); otherwise a single JSON body is returned after generation
// completes.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	history := s.loadHistory(r, req.Session)

	if req.Stream {
		s.streamQuery(w, r, &req, history)
		return
	}

	start := time.Now()
	ans, err := s.deps.Pipeline.Answer(r.Context(), req.Question, req.TopK, history)
	if err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues("error").Inc()
		writeDomainError(w, r, err)
		return
	}
	s.metrics.queryRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.queryDurationSeconds.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	s.persistTurn(r, req.Session, req.Question, ans.Text)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(queryResponse{Answer: ans.Text, Sources: ans.Sources})
}

// streamQuery answers req over SSE. Token events are emitted as data frames,
// the deduplicated sources as an "event: sources" frame, and completion as
// "event: done".
func (s *Server) streamQuery(w http.ResponseWriter, r *http.Request, req *queryRequest, history []*schema.Message) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	events, err := s.deps.Pipeline.AnswerStream(r.Context(), req.Question, req.TopK, history)
	if err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues("error").Inc()
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	s.metrics.queryActiveStreams.Inc()
	defer s.metrics.queryActiveStreams.Dec()

	outcome := "ok"
	var answer strings.Builder
	for ev := range events {
		switch {
		case ev.Err != nil:
			outcome = "error"
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", ev.Err.Error())
		case ev.Done:
			sources, _ := json.Marshal(ev.Sources)
			fmt.Fprintf(w, "event: sources\ndata: %s\n\n", sources)
		case ev.Token != "":
			answer.WriteString(ev.Token)
			writeSSEData(w, ev.Token)
		}
		flusher.Flush()
	}

	fmt.Fprintf(w, "event: done\ndata: [DONE]\n\n")
	flusher.Flush()

	s.metrics.queryRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if outcome == "ok" {
		s.persistTurn(r, req.Session, req.Question, answer.String())
	}
}

// writeSSEData emits chunk as one SSE data frame. Each newline in chunk is
// prefixed with "data: " so multi-line chunks never break the frame boundary.
func writeSSEData(w http.ResponseWriter, chunk string) {
	lines := strings.Split(strings.TrimRight(chunk, "\n"), "\n")
	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	fmt.Fprint(w, buf.String())
}

// loadHistory returns the stored conversation for the session, or nil when
// history is disabled or the session is anonymous.
func (s *Server) loadHistory(r *http.Request, session string) []*schema.Message {
	if s.deps.History == nil || session == "" {
		return nil
	}

	msgs, err := s.deps.History.Recent(r.Context(), session, historyDepth)
	if err != nil {
		logging.FromContext(r.Context()).Warn("history: failed to load session",
			slog.String("session", session), slog.Any("error", err))
		return nil
	}

	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case store.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case store.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}

// persistTurn stores the question/answer pair on the session thread.
// Persistence failures are logged, never surfaced to the client.
func (s *Server) persistTurn(r *http.Request, session, question, answer string) {
	if s.deps.History == nil || session == "" {
		return
	}

	log := logging.FromContext(r.Context())
	if err := s.deps.History.Append(r.Context(), session, store.RoleUser, question); err != nil {
		log.Warn("history: failed to persist question", slog.Any("error", err))
	}
	if err := s.deps.History.Append(r.Context(), session, store.RoleAssistant, answer); err != nil {
		log.Warn("history: failed to persist answer", slog.Any("error", err))
	}
}

// handleSearch handles POST /api/search: retrieval without generation.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	docs, err := s.deps.Retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := searchResponse{Results: make([]searchResult, 0, len(docs))}
	for _, d := range docs {
		resp.Results = append(resp.Results, searchResult{
			Content:  d.Content,
			Source:   d.Source,
			Score:    d.Score,
			Metadata: d.Metadata,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleIngest handles POST /api/ingest: server-local path ingestion.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	log := logging.FromContext(r.Context())

	if req.Reset {
		if err := s.deps.Store.Reset(r.Context()); err != nil {
			writeDomainError(w, r, err)
			return
		}
		log.Info("collection reset before ingest")
	}

	result, err := s.deps.Ingester.IngestPath(r.Context(), req.Path, func(msg string) {
		log.Debug("ingest progress", slog.String("msg", msg))
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ingestResponse{
		DocumentsProcessed: result.DocumentsProcessed,
		DocumentsFailed:    result.DocumentsFailed,
		ChunksCreated:      result.ChunksCreated,
		Skipped:            result.Skipped,
	})
}

// handleStatus handles GET /api/status. An unreachable backend is reported
// as degraded with HTTP 200 — the server itself is healthy. Both the vector
// store and (when a probe is wired) the chat backend get their own
// connectivity flag, alongside the configured model names.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:         "ok",
		Collection:     s.deps.Store.Collection(),
		VectorStore:    "ok",
		ChatModel:      s.deps.ChatModel,
		EmbeddingModel: s.deps.EmbeddingModel,
	}

	if err := s.deps.Store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.VectorStore = "unreachable"
		resp.Error = err.Error()
	} else if count, err := s.deps.Store.Count(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.VectorStore = "unreachable"
		resp.Error = err.Error()
	} else {
		resp.Documents = count
	}

	if s.deps.LLM != nil {
		if err := s.deps.LLM.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.LLM = "unreachable"
			if resp.Error == "" {
				resp.Error = err.Error()
			}
		} else {
			resp.LLM = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleReset handles POST /api/reset. The body must carry "confirm": true;
// anything else is rejected because the operation is irreversible.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Confirm {
		http.Error(w, "reset requires confirmation", http.StatusBadRequest)
		return
	}

	if err := s.deps.Store.Reset(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("collection reset",
		slog.String("collection", s.deps.Store.Collection()))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":     "reset",
		"collection": s.deps.Store.Collection(),
	})
}

// handleDocuments handles GET /api/documents: distinct sources present in
// the collection.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	sources, err := s.deps.Store.Sources(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if sources == nil {
		sources = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documentsResponse{Documents: sources, Count: len(sources)})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeDomainError maps pipeline error classes onto HTTP status codes:
// caller mistakes become 400, unreachable or failing backends become 502,
// anything unclassified becomes 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	switch {
	case errors.Is(err, rag.ErrInvalidArgument), errors.Is(err, rag.ErrConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rag.ErrConnection),
		errors.Is(err, rag.ErrEmbedding),
		errors.Is(err, rag.ErrGeneration),
		errors.Is(err, rag.ErrSchemaMismatch):
		log.Error("backend failure", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		log.Error("internal error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
