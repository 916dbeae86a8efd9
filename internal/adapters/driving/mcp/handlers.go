// Package mcp exposes the query and indexing services as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driving"
)

// AskArgs defines the arguments for the ask tool.
type AskArgs struct {
	Query  string `json:"query" jsonschema_description:"Natural-language question about the MOSDAC site (e.g. 'tell me about insat 3d')"`
	UserID string `json:"user_id,omitempty" jsonschema_description:"Optional caller id, only used for logging"`
}

// IndexPageArgs defines the arguments for the index_page tool.
type IndexPageArgs struct {
	URL string `json:"url" jsonschema_description:"Absolute http(s) URL of the page to fetch and index"`
}

// ResolveArgs defines the arguments for the resolve tool.
type ResolveArgs struct {
	Query string `json:"query" jsonschema_description:"Question to route to a page, without answering it"`
}

// StatusArgs defines the arguments for the status tool.
type StatusArgs struct{}

// Handlers wraps the services and provides MCP tool handlers.
type Handlers struct {
	query    driving.QueryService
	indexing driving.IndexingService
	logger   *slog.Logger
}

// NewHandlers creates handlers over the given services.
func NewHandlers(query driving.QueryService, indexing driving.IndexingService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{query: query, indexing: indexing, logger: logger}
}

// Ask handles the ask tool call.
// It takes the same path as the HTTP query endpoint.
func (h *Handlers) Ask(ctx context.Context, req *mcp.CallToolRequest, args AskArgs) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, nil, fmt.Errorf("query is required")
	}

	resp := h.query.Query(ctx, domain.QueryRequest{Query: query, UserID: args.UserID})
	h.logger.Info("ask: answered", "query", query, "sources", len(resp.SourceLinks))

	var b strings.Builder
	b.WriteString(resp.Answer)
	if len(resp.SourceLinks) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, link := range resp.SourceLinks {
			fmt.Fprintf(&b, "- %s\n", link)
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, nil, nil
}

// IndexPage handles the index_page tool call.
func (h *Handlers) IndexPage(ctx context.Context, req *mcp.CallToolRequest, args IndexPageArgs) (*mcp.CallToolResult, any, error) {
	url := strings.TrimSpace(args.URL)
	if url == "" {
		return nil, nil, fmt.Errorf("url is required")
	}

	result, err := h.indexing.IndexPage(ctx, url)
	if err != nil {
		h.logger.Error("index_page: failed", "url", url, "error", err)
		return nil, nil, err
	}

	var msg string
	if result.Success {
		msg = fmt.Sprintf("Indexed.\n\nurl: %s\nslug: %s\nchunks: %d\n", result.URL, result.Slug, result.Chunks)
	} else {
		msg = fmt.Sprintf("Not indexed.\n\nurl: %s\nstage: %s\nerror: %s\n", result.URL, result.Stage, result.Error)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: !result.Success,
	}, nil, nil
}

// Resolve handles the resolve tool call.
func (h *Handlers) Resolve(ctx context.Context, req *mcp.CallToolRequest, args ResolveArgs) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, nil, fmt.Errorf("query is required")
	}

	res := h.query.Resolve(query)
	msg := "No page matches this query."
	if res.Found() {
		msg = fmt.Sprintf("url: %s\nkey: %s\ntier: %s\n", res.URL, res.Key, res.Tier)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}, nil, nil
}

// Status handles the status tool call.
func (h *Handlers) Status(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	status := h.query.Status(ctx)
	msg := fmt.Sprintf("state: %s\nchunks: %d\nrevision: %d\n", status.State, status.Chunks, status.Revision)
	if status.Reason != "" {
		msg += fmt.Sprintf("reason: %s\n", status.Reason)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}, nil, nil
}
