package driving

import (
	"context"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

// QueryService answers natural-language questions about the site
type QueryService interface {
	// Query resolves the question to a page, makes sure that page is indexed
	// (synchronously when absent, in the background when present), and
	// answers from the current retrieval handle. It never fails: model and
	// index failures are reported through fixed messages in the response.
	Query(ctx context.Context, req domain.QueryRequest) *domain.QueryResponse

	// Resolve returns the page a query would be routed to, without side effects
	Resolve(query string) domain.Resolution

	// Links returns the link index entries in insertion order
	Links() []domain.LinkEntry

	// Status reports retrieval readiness
	Status(ctx context.Context) domain.ReadinessStatus
}
