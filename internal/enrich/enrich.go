package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"marketboard/internal/logging"
	"marketboard/internal/market"
	"marketboard/internal/normalize"
	"marketboard/internal/provider"
)

// DefaultTimeout bounds one company-overview lookup when none is configured.
const DefaultTimeout = 5 * time.Second

// Resolver looks up company display names and exchanges. It is best effort:
// Resolve never fails, it degrades to market.DefaultMetadata.
type Resolver struct {
	fetcher provider.Fetcher
	timeout time.Duration
	log     *zap.Logger
}

// New returns a Resolver. A non-positive timeout selects DefaultTimeout.
func New(fetcher provider.Fetcher, timeout time.Duration, log *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, timeout: timeout, log: log}
}

// Resolve returns the company metadata for symbol, or the default metadata
// when the lookup fails for any reason.
func (r *Resolver) Resolve(ctx context.Context, symbol string) market.CompanyMetadata {
	fallback := market.DefaultMetadata(symbol)
	log := logging.FromContext(ctx, r.log).With(zap.String("symbol", symbol))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := r.fetcher.Fetch(ctx, provider.EndpointCompanyOverview, map[string]string{"symbol": symbol})
	if err != nil {
		log.Debug("enrichment degraded", zap.Error(err))
		return fallback
	}
	meta, ok := normalize.CompanyOverview(body)
	if !ok {
		log.Debug("enrichment degraded: overview missing Name or Exchange")
		return fallback
	}
	return meta
}
