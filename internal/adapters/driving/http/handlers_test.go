package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven/mocks"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
)

// Mock services for testing

type mockQueryService struct {
	queryFn func(ctx context.Context, req domain.QueryRequest) *domain.QueryResponse
	status  domain.ReadinessStatus
	links   []domain.LinkEntry
	calls   []domain.QueryRequest
}

func (m *mockQueryService) Query(ctx context.Context, req domain.QueryRequest) *domain.QueryResponse {
	m.calls = append(m.calls, req)
	if m.queryFn != nil {
		return m.queryFn(ctx, req)
	}
	return domain.NewMessageResponse(domain.MessageUnavailable)
}

func (m *mockQueryService) Resolve(query string) domain.Resolution {
	return domain.Resolution{Tier: domain.ResolveTierNone}
}

func (m *mockQueryService) Links() []domain.LinkEntry {
	return m.links
}

func (m *mockQueryService) Status(ctx context.Context) domain.ReadinessStatus {
	return m.status
}

type mockIndexingService struct {
	indexFn   func(ctx context.Context, url string) (*domain.IndexResult, error)
	rebuildFn func(ctx context.Context) (*domain.RebuildResult, error)
}

func (m *mockIndexingService) IndexPage(ctx context.Context, url string) (*domain.IndexResult, error) {
	if m.indexFn != nil {
		return m.indexFn(ctx, url)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIndexingService) Rebuild(ctx context.Context) (*domain.RebuildResult, error) {
	if m.rebuildFn != nil {
		return m.rebuildFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIndexingService) Crawl(ctx context.Context, maxPages int) (int, error) {
	return 0, errors.New("not implemented")
}

func (m *mockIndexingService) Load(ctx context.Context) error {
	return nil
}

type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

// adminAuth accepts the token "admin-token" only
func adminAuth() *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			if token != "admin-token" {
				return nil, domain.ErrTokenInvalid
			}
			return &domain.AuthContext{Subject: "admin", Role: domain.RoleAdmin}, nil
		},
	}
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error {
	return nil
}

type testServerOptions struct {
	query    *mockQueryService
	indexing *mockIndexingService
	auth     *mockAuthService
	queue    *mocks.MockTaskQueue
	checks   map[string]Pinger
}

func newTestServer(opts testServerOptions) *Server {
	if opts.query == nil {
		opts.query = &mockQueryService{}
	}
	if opts.indexing == nil {
		opts.indexing = &mockIndexingService{}
	}
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"

	// Typed nil pointers must not reach the server as non-nil interfaces
	var (
		auth  driving.AuthService
		queue driven.TaskQueue
	)
	if opts.auth != nil {
		auth = opts.auth
	}
	if opts.queue != nil {
		queue = opts.queue
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, opts.query, opts.indexing, auth, queue, opts.checks, logger)
}

func doRequest(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// Root and health endpoints

func TestHandleRoot(t *testing.T) {
	s := newTestServer(testServerOptions{})

	rr := doRequest(s, http.MethodGet, "/", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	want := `{"status":"ok","message":"Welcome to the MOSDAC Bot API!"}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Errorf("expected body %s, got %s", want, got)
	}
}

func TestHandleRoot_UnknownPath(t *testing.T) {
	s := newTestServer(testServerOptions{})

	rr := doRequest(s, http.MethodGet, "/nope", "", "")

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(testServerOptions{checks: map[string]Pinger{"queue": okPinger{}}})

	rr := doRequest(s, http.MethodGet, "/health", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp HealthResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
	if resp.Components["queue"] != "ok" {
		t.Errorf("expected queue ok, got %q", resp.Components["queue"])
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	s := newTestServer(testServerOptions{checks: map[string]Pinger{
		"queue": okPinger{},
		"redis": failingPinger{},
	}})

	rr := doRequest(s, http.MethodGet, "/health", "", "")

	// Liveness stays 200 while a component is down
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp HealthResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "degraded" {
		t.Errorf("expected status degraded, got %s", resp.Status)
	}
	if resp.Components["redis"] != "connection refused" {
		t.Errorf("expected redis error, got %q", resp.Components["redis"])
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.ReadinessStatus
		wantStatus int
	}{
		{
			name:       "ready",
			status:     domain.ReadinessStatus{State: domain.ReadinessReady, Chunks: 12, Revision: 3},
			wantStatus: http.StatusOK,
		},
		{
			name:       "uninitialized",
			status:     domain.ReadinessStatus{State: domain.ReadinessUninitialized},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "failed",
			status:     domain.ReadinessStatus{State: domain.ReadinessFailed, Reason: "vector store is empty"},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(testServerOptions{query: &mockQueryService{status: tt.status}})

			rr := doRequest(s, http.MethodGet, "/ready", "", "")

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			var resp domain.ReadinessStatus
			decodeBody(t, rr, &resp)
			if resp != tt.status {
				t.Errorf("expected %+v, got %+v", tt.status, resp)
			}
		})
	}
}

func TestHandleVersion(t *testing.T) {
	s := newTestServer(testServerOptions{})

	rr := doRequest(s, http.MethodGet, "/version", "", "")

	var resp VersionResponse
	decodeBody(t, rr, &resp)
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp.Version)
	}
}

// Query endpoints

func TestHandleQuery(t *testing.T) {
	query := &mockQueryService{
		queryFn: func(ctx context.Context, req domain.QueryRequest) *domain.QueryResponse {
			return domain.NewAnswerResponse("INSAT-3D is a meteorological satellite.", []*domain.Chunk{
				{Source: "https://mosdac.gov.in/insat-3d", Content: "INSAT-3D carries an imager"},
			})
		},
	}
	s := newTestServer(testServerOptions{query: query})

	for _, path := range []string{"/query", "/api/query"} {
		t.Run(path, func(t *testing.T) {
			rr := doRequest(s, http.MethodPost, path, `{"query":"  tell me about insat 3d ","user_id":"u1"}`, "")

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp domain.QueryResponse
			decodeBody(t, rr, &resp)
			if resp.Answer != "INSAT-3D is a meteorological satellite." || resp.Response != resp.Answer {
				t.Errorf("unexpected answer: %+v", resp)
			}
			if len(resp.SourceLinks) != 1 || resp.SourceLinks[0] != "https://mosdac.gov.in/insat-3d" {
				t.Errorf("unexpected source links: %v", resp.SourceLinks)
			}
			if len(resp.SourceDocuments) != 1 {
				t.Errorf("expected one source document, got %d", len(resp.SourceDocuments))
			}
		})
	}

	if len(query.calls) != 2 {
		t.Fatalf("expected two queries, got %d", len(query.calls))
	}
	if query.calls[0].Query != "tell me about insat 3d" || query.calls[0].UserID != "u1" {
		t.Errorf("unexpected request passed to service: %+v", query.calls[0])
	}
}

func TestHandleQuery_Degraded(t *testing.T) {
	s := newTestServer(testServerOptions{})

	rr := doRequest(s, http.MethodPost, "/query", `{"query":"what is mosdac"}`, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	var resp domain.QueryResponse
	decodeBody(t, rr, &resp)
	if resp.Response == "" {
		t.Error("expected a non-empty message")
	}
	if resp.SourceLinks == nil || len(resp.SourceLinks) != 0 {
		t.Errorf("expected empty source links, got %v", resp.SourceLinks)
	}
	if resp.SourceDocuments == nil || len(resp.SourceDocuments) != 0 {
		t.Errorf("expected empty source documents, got %v", resp.SourceDocuments)
	}
	if !strings.Contains(body, `"source_documents":[]`) {
		t.Errorf("expected empty source documents array, got %s", body)
	}
}

func TestHandleQuery_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"query":`, "invalid request body"},
		{"empty body", "", "invalid request body"},
		{"missing query", `{"user_id":"u1"}`, "query is required"},
		{"blank query", `{"query":"   "}`, "query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := &mockQueryService{}
			s := newTestServer(testServerOptions{query: query})

			rr := doRequest(s, http.MethodPost, "/query", tt.body, "")

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
			var resp ErrorResponse
			decodeBody(t, rr, &resp)
			if resp.Error != tt.want {
				t.Errorf("expected error %q, got %q", tt.want, resp.Error)
			}
			if len(query.calls) != 0 {
				t.Error("service must not be called for a bad request")
			}
		})
	}
}

func TestHandleQuery_WrongMethod(t *testing.T) {
	s := newTestServer(testServerOptions{})

	rr := doRequest(s, http.MethodGet, "/query", "", "")

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

// Admin endpoints

func TestAdminRoutes_DisabledWithoutAuth(t *testing.T) {
	s := newTestServer(testServerOptions{})

	rr := doRequest(s, http.MethodPost, "/api/v1/admin/login", `{"password":"x"}`, "")

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleLogin(t *testing.T) {
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	auth := &mockAuthService{
		authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			switch req.Password {
			case "secret":
				return &domain.LoginResponse{Token: "admin-token", ExpiresAt: expires}, nil
			case "":
				return nil, domain.ErrInvalidInput
			case "disabled":
				return nil, domain.ErrUnauthorized
			case "boom":
				return nil, errors.New("signing failed")
			default:
				return nil, domain.ErrInvalidCredentials
			}
		},
	}
	s := newTestServer(testServerOptions{auth: auth})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"password":"secret"}`, http.StatusOK},
		{"invalid body", `not json`, http.StatusBadRequest},
		{"missing password", `{}`, http.StatusBadRequest},
		{"wrong password", `{"password":"guess"}`, http.StatusUnauthorized},
		{"disabled", `{"password":"disabled"}`, http.StatusForbidden},
		{"internal error", `{"password":"boom"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, http.MethodPost, "/api/v1/admin/login", tt.body, "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				var resp domain.LoginResponse
				decodeBody(t, rr, &resp)
				if resp.Token != "admin-token" || !resp.ExpiresAt.Equal(expires) {
					t.Errorf("unexpected login response: %+v", resp)
				}
			}
		})
	}
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	s := newTestServer(testServerOptions{auth: adminAuth()})

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/admin/index"},
		{http.MethodPost, "/api/v1/admin/rebuild"},
		{http.MethodGet, "/api/v1/admin/links"},
		{http.MethodGet, "/api/v1/admin/status"},
	}

	for _, route := range routes {
		t.Run(route.path, func(t *testing.T) {
			rr := doRequest(s, route.method, route.path, "", "")
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401 without token, got %d", rr.Code)
			}

			rr = doRequest(s, route.method, route.path, "", "wrong-token")
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401 with invalid token, got %d", rr.Code)
			}
		})
	}
}

func TestHandleIndexPage(t *testing.T) {
	indexing := &mockIndexingService{
		indexFn: func(ctx context.Context, url string) (*domain.IndexResult, error) {
			switch url {
			case "https://mosdac.gov.in/insat-3d/":
				return &domain.IndexResult{URL: "https://mosdac.gov.in/insat-3d", Slug: "insat-3d", Success: true, Stage: domain.IndexStageDone, Chunks: 4}, nil
			case "https://mosdac.gov.in/empty":
				return &domain.IndexResult{URL: url, Stage: domain.IndexStageFetch, Error: "no indexable content"}, nil
			case "https://mosdac.gov.in/down":
				return nil, context.DeadlineExceeded
			default:
				return nil, fmt.Errorf("%w: bad url", domain.ErrInvalidInput)
			}
		},
	}
	s := newTestServer(testServerOptions{indexing: indexing, auth: adminAuth()})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"indexed", `{"url":"https://mosdac.gov.in/insat-3d/"}`, http.StatusOK},
		{"no content", `{"url":"https://mosdac.gov.in/empty"}`, http.StatusUnprocessableEntity},
		{"invalid url", `{"url":"ftp://example"}`, http.StatusBadRequest},
		{"invalid body", `{`, http.StatusBadRequest},
		{"timeout", `{"url":"https://mosdac.gov.in/down"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, http.MethodPost, "/api/v1/admin/index", tt.body, "admin-token")
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				var resp domain.IndexResult
				decodeBody(t, rr, &resp)
				if !resp.Success || resp.Chunks != 4 {
					t.Errorf("unexpected result: %+v", resp)
				}
			}
		})
	}
}

func TestHandleRebuild(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"nothing stored", fmt.Errorf("rebuild: %w", domain.ErrNoContent), http.StatusConflict},
		{"no embedder", fmt.Errorf("rebuild embed: %w", domain.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indexing := &mockIndexingService{
				rebuildFn: func(ctx context.Context) (*domain.RebuildResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.RebuildResult{Pages: 2, Chunks: 9}, nil
				},
			}
			s := newTestServer(testServerOptions{indexing: indexing, auth: adminAuth()})

			rr := doRequest(s, http.MethodPost, "/api/v1/admin/rebuild", "", "admin-token")
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestHandleRebuild_Async(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	indexing := &mockIndexingService{
		rebuildFn: func(ctx context.Context) (*domain.RebuildResult, error) {
			t.Error("rebuild must not run synchronously")
			return nil, nil
		},
	}
	s := newTestServer(testServerOptions{indexing: indexing, auth: adminAuth(), queue: queue})

	rr := doRequest(s, http.MethodPost, "/api/v1/admin/rebuild?async=true", "", "admin-token")

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	tasks := queue.Tasks()
	if len(tasks) != 1 || tasks[0].Type != domain.TaskTypeRebuild {
		t.Errorf("expected one rebuild task, got %v", tasks)
	}
}

func TestHandleListLinks(t *testing.T) {
	query := &mockQueryService{links: []domain.LinkEntry{
		{Key: "INSAT-3D", Target: "https://mosdac.gov.in/insat-3d"},
		{Key: "Oceansat-3", Target: "https://mosdac.gov.in/oceansat-3"},
	}}
	s := newTestServer(testServerOptions{query: query, auth: adminAuth()})

	rr := doRequest(s, http.MethodGet, "/api/v1/admin/links", "", "admin-token")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp LinksResponse
	decodeBody(t, rr, &resp)
	if resp.Count != 2 || resp.Links[0].Key != "INSAT-3D" || resp.Links[1].Key != "Oceansat-3" {
		t.Errorf("unexpected links: %+v", resp)
	}
}

func TestHandleStatus(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	_ = queue.Enqueue(context.Background(), domain.NewRefreshPageTask("https://mosdac.gov.in/insat-3d"))
	query := &mockQueryService{
		status: domain.ReadinessStatus{State: domain.ReadinessReady, Chunks: 7, Revision: 2},
		links:  []domain.LinkEntry{{Key: "INSAT-3D", Target: "https://mosdac.gov.in/insat-3d"}},
	}
	s := newTestServer(testServerOptions{query: query, auth: adminAuth(), queue: queue})

	rr := doRequest(s, http.MethodGet, "/api/v1/admin/status", "", "admin-token")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp AdminStatusResponse
	decodeBody(t, rr, &resp)
	if resp.Readiness.Chunks != 7 || resp.Readiness.Revision != 2 {
		t.Errorf("unexpected readiness: %+v", resp.Readiness)
	}
	if resp.Queue == nil || resp.Queue.PendingCount != 1 {
		t.Errorf("expected one pending task, got %+v", resp.Queue)
	}
	if resp.Links != 1 || resp.Version != "1.2.3" {
		t.Errorf("unexpected status: %+v", resp)
	}
}
