// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the concrete completion providers.
package port

import (
	"context"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
)

// Completer issues a single blocking call to a text-completion service.
//
// Any returned error means "completion unavailable"; callers never need to
// distinguish timeouts from auth or rate-limit failures and must fall back
// to deterministic text instead of surfacing the error.
type Completer interface {
	Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error)
}

// Provider is implemented by completers that can name the backend they call.
type Provider interface {
	Provider() string
}
