package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"marketboard/internal/logging"
	"marketboard/internal/market"
	"marketboard/internal/normalize"
)

// MetadataResolver is satisfied by *enrich.Resolver. Resolve must not fail.
type MetadataResolver interface {
	Resolve(ctx context.Context, symbol string) market.CompanyMetadata
}

// Assembler turns raw ranking records into the movers payload.
type Assembler struct {
	resolver       MetadataResolver
	maxConcurrency int
	// budget bounds the whole enrichment pass; 0 leaves only the per-lookup bound.
	budget time.Duration
	log    *zap.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithBudget caps the time spent enriching one payload. Records still
// unresolved when it runs out keep their default metadata.
func WithBudget(d time.Duration) AssemblerOption {
	return func(a *Assembler) {
		a.budget = d
	}
}

// NewAssembler returns an Assembler. maxConcurrency <= 0 means no limit on
// in-flight enrichment calls. resolver may be nil when enrichment is never used.
func NewAssembler(resolver MetadataResolver, maxConcurrency int, log *zap.Logger, options ...AssemblerOption) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Assembler{resolver: resolver, maxConcurrency: maxConcurrency, log: log}
	for _, option := range options {
		option(a)
	}
	return a
}

// Movers normalizes both lists. With enrich set, metadata for every record is
// resolved concurrently and joined back by index, so output order is input
// order whatever the completion order. Enrichment failures only degrade the
// metadata of the affected record.
//
// Once started, assembly ignores cancellation of ctx; each lookup is bounded
// by the resolver's own timeout and the whole pass by the budget.
func (a *Assembler) Movers(ctx context.Context, gainers, losers []normalize.RawMover, enrich bool) market.MoversPayload {
	gainerMeta := defaults(gainers)
	loserMeta := defaults(losers)

	if enrich && a.resolver != nil && len(gainers)+len(losers) > 0 {
		a.resolveAll(context.WithoutCancel(ctx), gainers, gainerMeta, losers, loserMeta)
	}

	return market.MoversPayload{
		Gainers: join(gainers, gainerMeta),
		Losers:  join(losers, loserMeta),
	}
}

type resolved struct {
	metas []market.CompanyMetadata
	i     int
	meta  market.CompanyMetadata
}

// resolveAll fills metas from this goroutine only, so lookups finishing after
// the budget cannot touch them. Concurrent lookups of one symbol (a ticker in
// both lists, or repeated within one) share a single vendor call.
func (a *Assembler) resolveAll(ctx context.Context, gainers []normalize.RawMover, gainerMeta []market.CompanyMetadata, losers []normalize.RawMover, loserMeta []market.CompanyMetadata) {
	log := logging.FromContext(ctx, a.log)
	if a.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.budget)
		defer cancel()
	}

	var sf singleflight.Group
	g, gctx := errgroup.WithContext(ctx)
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}

	// buffered for every record so late lookups never block
	results := make(chan resolved, len(gainers)+len(losers))
	schedule := func(raws []normalize.RawMover, metas []market.CompanyMetadata) {
		for i, raw := range raws {
			symbol := raw.Symbol()
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				v, _, _ := sf.Do(symbol, func() (any, error) {
					return a.resolver.Resolve(gctx, symbol), nil
				})
				results <- resolved{metas: metas, i: i, meta: v.(market.CompanyMetadata)}
				return nil
			})
		}
	}
	go func() {
		schedule(gainers, gainerMeta)
		schedule(losers, loserMeta)
		_ = g.Wait()
		close(results)
	}()

	done := 0
	for {
		select {
		case r, ok := <-results:
			if !ok {
				log.Debug("enrichment complete", zap.Int("gainers", len(gainers)), zap.Int("losers", len(losers)))
				return
			}
			r.metas[r.i] = r.meta
			done++
		case <-ctx.Done():
			log.Debug("enrichment budget exhausted",
				zap.Int("resolved", done),
				zap.Int("total", len(gainers)+len(losers)),
				zap.Duration("budget", a.budget),
			)
			return
		}
	}
}

func defaults(raws []normalize.RawMover) []market.CompanyMetadata {
	out := make([]market.CompanyMetadata, len(raws))
	for i, raw := range raws {
		out[i] = market.DefaultMetadata(raw.Symbol())
	}
	return out
}

func join(raws []normalize.RawMover, metas []market.CompanyMetadata) []market.Mover {
	out := make([]market.Mover, 0, len(raws))
	for i, raw := range raws {
		out = append(out, normalize.Mover(raw, metas[i]))
	}
	return out
}
