package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"factscout/internal/domain"
)

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response any `json:"response"`
}

type errorResponse struct {
	Error   string           `json:"error"`
	Code    domain.ErrorCode `json:"code,omitempty"`
	Details string           `json:"details,omitempty"`
}

// postsPayload is the wire shape of a direct posts result.
type postsPayload struct {
	Data  []domain.Post `json:"data"`
	Title string        `json:"title"`
}

// workflowPayload is the wire shape of a pipeline result.
type workflowPayload struct {
	OriginalResponse string                 `json:"originalResponse"`
	AgentWorkflow    *domain.WorkflowResult `json:"agentWorkflow"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	// The query arrives as a JSON body or, for quick curls, a query parameter.
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Invalid request body",
			Code:  domain.CodeInvalidInput,
		})
		return
	}
	if req.Query == "" {
		req.Query = r.URL.Query().Get("query")
	}

	s.metrics.QueriesTotal.Add(1)

	report, err := s.svc.Handle(r.Context(), req.Query)
	if err != nil {
		s.metrics.ErrorsTotal.Add(1)
		code := domain.ErrorCodeOf(err)
		status := httpStatusFor(code)
		s.logger.Error("query failed", "code", code, "error", err)
		writeJSON(w, status, errorResponse{
			Error:   "Failed to process query",
			Code:    code,
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Response: reportPayload(report)})
}

// reportPayload maps a handler report onto the response field. Direct text
// results collapse to a plain string; everything else keeps its structure.
func reportPayload(report *domain.Report) any {
	if report.Direct != nil {
		if report.Direct.Kind == domain.ResultPosts {
			return postsPayload{Data: report.Direct.Posts, Title: report.Direct.Label}
		}
		return report.Direct.Text
	}
	return workflowPayload{
		OriginalResponse: report.OriginalResponse,
		AgentWorkflow:    report.Workflow,
	}
}

func httpStatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeNotFound, domain.CodeRetrieverUnknown:
		return http.StatusNotFound
	case domain.CodeRateLimit:
		return http.StatusTooManyRequests
	case domain.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StatusResponse is the health and metrics snapshot served at /api/v1/status.
type StatusResponse struct {
	Service    string       `json:"service"`
	Version    string       `json:"version"`
	Uptime     string       `json:"uptime"`
	LLM        string       `json:"llm_provider,omitempty"`
	Embedding  string       `json:"embedding_provider,omitempty"`
	Retrievers []string     `json:"retrievers,omitempty"`
	Metrics    StatusCounts `json:"metrics"`
}

// StatusCounts carries the request counters.
type StatusCounts struct {
	QueriesTotal int64 `json:"queries_total"`
	ErrorsTotal  int64 `json:"errors_total"`
}

// Version is set at build time via -ldflags.
var Version = "dev"

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Service:    "factscout",
		Version:    Version,
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		LLM:        s.providers.llm,
		Embedding:  s.providers.embedding,
		Retrievers: s.providers.retrievers,
		Metrics: StatusCounts{
			QueriesTotal: s.metrics.QueriesTotal.Load(),
			ErrorsTotal:  s.metrics.ErrorsTotal.Load(),
		},
	})
}
