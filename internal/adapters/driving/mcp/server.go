package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "satgraffin"

// NewServer registers every tool on a new MCP server.
func NewServer(h *Handlers, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: "Use ask to answer questions about the MOSDAC site. Use index_page to add or refresh a page.",
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about the MOSDAC site, indexing the matching page first when it has not been seen.",
	}, h.Ask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_page",
		Description: "Fetch one page, store its text and merge its chunks into the vector index.",
	}, h.IndexPage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve",
		Description: "Show which page a question would be routed to, without answering it.",
	}, h.Resolve)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "status",
		Description: "Report whether the retrieval index is ready and how many chunks it holds.",
	}, h.Status)

	return server
}

// Serve runs the server over stdio until ctx is cancelled or the client disconnects.
func Serve(ctx context.Context, h *Handlers, version string) error {
	return NewServer(h, version).Run(ctx, &mcp.StdioTransport{})
}
