package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"

	"go.uber.org/zap"
)

// completionCaller is the single place that talks to the completion port.
// It records metrics and logs failures; callers decide on the fallback.
type completionCaller struct {
	completer port.Completer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func newCompletionCaller(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *completionCaller {
	return &completionCaller{completer: completer, metrics: metrics, logger: logger}
}

// completeText renders p, issues one completion call and returns the text.
// Any error means the completion service is unavailable.
func (c *completionCaller) completeText(ctx context.Context, p prompt) (string, error) {
	req := p.render()

	start := time.Now()
	res, err := c.completer.Complete(ctx, req)
	c.metrics.RecordRequestDuration("completion."+req.Operation, time.Since(start))

	if err != nil {
		c.metrics.IncrCompletionCall(req.Operation, observability.OutcomeFailure)
		c.logger.Warn("completion call failed",
			zap.String("operation", req.Operation),
			zap.Error(err),
		)
		return "", err
	}

	c.metrics.IncrCompletionCall(req.Operation, observability.OutcomeSuccess)
	c.metrics.RecordTokens(res.TokensUsed.PromptTokens, res.TokensUsed.CompletionTokens)
	return res.Text, nil
}

// fallback records that component served deterministic text and flags the
// dispatch carried by ctx as degraded.
func (c *completionCaller) fallback(ctx context.Context, component string) {
	c.metrics.IncrFallback(component)
	markDegraded(ctx)
}

// ============================================================
// Degraded-dispatch tracking
// ============================================================

type degradedKey struct{}

// withDegradedFlag attaches a flag that any component of the dispatch can
// raise when it falls back.
func withDegradedFlag(ctx context.Context) (context.Context, *atomic.Bool) {
	flag := &atomic.Bool{}
	return context.WithValue(ctx, degradedKey{}, flag), flag
}

func markDegraded(ctx context.Context) {
	if flag, ok := ctx.Value(degradedKey{}).(*atomic.Bool); ok {
		flag.Store(true)
	}
}
