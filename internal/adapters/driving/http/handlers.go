package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// WelcomeMessage is returned by the root endpoint.
const WelcomeMessage = "Welcome to the MOSDAC Bot API!"

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message,omitempty" example:"Welcome to the MOSDAC Bot API!"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// HealthResponse reports liveness and component health
// @Description Liveness and component health
type HealthResponse struct {
	Status     string            `json:"status" example:"ok"`
	Components map[string]string `json:"components,omitempty"`
}

// IndexRequest asks for one page to be indexed
// @Description Page to index
type IndexRequest struct {
	URL string `json:"url" example:"https://mosdac.gov.in/insat-3d/"`
}

// LinksResponse lists the link index
// @Description Link index entries in insertion order
type LinksResponse struct {
	Links []domain.LinkEntry `json:"links"`
	Count int                `json:"count"`
}

// AdminStatusResponse is the admin view of the service
// @Description Readiness plus queue statistics
type AdminStatusResponse struct {
	Readiness domain.ReadinessStatus `json:"readiness"`
	Queue     *driven.QueueStats     `json:"queue,omitempty"`
	Links     int                    `json:"links"`
	Version   string                 `json:"version"`
}

// handleRoot godoc
// @Summary      Welcome
// @Description  Liveness check kept for existing clients
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       / [get]
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Message: WelcomeMessage})
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns liveness and the health of each backing component
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		resp.Components = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if check == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Components[name] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns 200 once a retrieval handle is published, 503 before
// @Tags         Health
// @Produce      json
// @Success      200  {object}  domain.ReadinessStatus
// @Failure      503  {object}  domain.ReadinessStatus
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.queryService.Status(r.Context())
	if !status.IsReady() {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Query endpoints

// handleQuery godoc
// @Summary      Ask a question
// @Description  Routes the question to a page, indexes it when needed and answers from the index.
// @Description  Model and index failures are reported in the answer text, never as an error status.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      domain.QueryRequest  true  "Question"
// @Success      200      {object}  domain.QueryResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Router       /query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	writeJSON(w, http.StatusOK, s.queryService.Query(r.Context(), req))
}

// Admin endpoints

// handleLogin godoc
// @Summary      Admin login
// @Description  Exchange the admin password for a JWT token
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Admin password"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Failure      403      {object}  ErrorResponse  "Admin login disabled"
// @Router       /api/v1/admin/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "password is required")
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusForbidden, "admin login is disabled")
		default:
			s.logger.Error("authentication failed", "error", err)
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleIndexPage godoc
// @Summary      Index a page
// @Description  Fetches, stores and embeds one page synchronously
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      IndexRequest  true  "Page URL"
// @Success      200      {object}  domain.IndexResult
// @Failure      400      {object}  ErrorResponse  "Invalid URL"
// @Failure      422      {object}  domain.IndexResult  "Page could not be indexed"
// @Router       /api/v1/admin/index [post]
func (s *Server) handleIndexPage(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.indexingService.IndexPage(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "url must be an absolute http(s) url")
			return
		}
		s.logger.Error("index page failed", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "indexing failed")
		return
	}

	if !result.Success {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRebuild godoc
// @Summary      Rebuild the index
// @Description  Re-embeds every stored page into a fresh index. With async=true the rebuild is queued.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        async  query     bool  false  "Queue the rebuild instead of waiting"
// @Success      200    {object}  domain.RebuildResult
// @Success      202    {object}  domain.Task
// @Failure      409    {object}  ErrorResponse  "Nothing stored to rebuild from"
// @Router       /api/v1/admin/rebuild [post]
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "true" && s.taskQueue != nil {
		task := domain.NewRebuildTask()
		if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
			s.logger.Error("failed to queue rebuild", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to queue rebuild")
			return
		}
		writeJSON(w, http.StatusAccepted, task)
		return
	}

	result, err := s.indexingService.Rebuild(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoContent):
			writeError(w, http.StatusConflict, "no stored pages to rebuild from")
		case errors.Is(err, domain.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "embedding service unavailable")
		default:
			s.logger.Error("rebuild failed", "error", err)
			writeError(w, http.StatusInternalServerError, "rebuild failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListLinks godoc
// @Summary      List links
// @Description  Returns the link index used to route queries
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  LinksResponse
// @Router       /api/v1/admin/links [get]
func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links := s.queryService.Links()
	writeJSON(w, http.StatusOK, LinksResponse{Links: links, Count: len(links)})
}

// handleStatus godoc
// @Summary      Service status
// @Description  Readiness, queue statistics and link count
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  AdminStatusResponse
// @Router       /api/v1/admin/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := AdminStatusResponse{
		Readiness: s.queryService.Status(r.Context()),
		Links:     len(s.queryService.Links()),
		Version:   s.version,
	}
	if s.taskQueue != nil {
		stats, err := s.taskQueue.Stats(r.Context())
		if err != nil {
			s.logger.Warn("queue stats unavailable", "error", err)
		} else {
			resp.Queue = stats
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Helper functions

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
