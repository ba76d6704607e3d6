package dashboard

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"marketboard/internal/market"
	"marketboard/internal/normalize"
)

type fakeResolver struct {
	mu       sync.Mutex
	calls    map[string]int
	delay    func(symbol string) time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeResolver) Resolve(_ context.Context, symbol string) market.CompanyMetadata {
	n := f.inflight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer f.inflight.Add(-1)

	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[symbol]++
	f.mu.Unlock()

	if f.delay != nil {
		time.Sleep(f.delay(symbol))
	}
	return market.CompanyMetadata{DisplayName: symbol + " Inc", Exchange: "NYSE"}
}

func (f *fakeResolver) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func raws(symbols ...string) []normalize.RawMover {
	out := make([]normalize.RawMover, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, normalize.NewRawMover(map[string]any{"ticker": s, "price": "1.00", "change_amount": "0.10"}))
	}
	return out
}

func symbolsOf(ms []market.Mover) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Symbol)
	}
	return out
}

func TestMovers_EmptyGainers_ThreeLosers(t *testing.T) {
	a := NewAssembler(&fakeResolver{}, 0, nil)
	got := a.Movers(t.Context(), raws(), raws("L1", "L2", "L3"), true)

	if got.Gainers == nil || len(got.Gainers) != 0 {
		t.Fatalf("want empty non-nil gainers, got %#v", got.Gainers)
	}
	if want := []string{"L1", "L2", "L3"}; fmt.Sprint(symbolsOf(got.Losers)) != fmt.Sprint(want) {
		t.Fatalf("losers order: got %v want %v", symbolsOf(got.Losers), want)
	}
}

func TestMovers_OrderedJoin_RandomDelays(t *testing.T) {
	const n = 24
	gainers := make([]string, n)
	losers := make([]string, n)
	for i := range n {
		gainers[i] = fmt.Sprintf("G%02d", i)
		losers[i] = fmt.Sprintf("L%02d", i)
	}

	for round := range 5 {
		delays := map[string]time.Duration{}
		for _, s := range append(append([]string{}, gainers...), losers...) {
			delays[s] = time.Duration(rand.IntN(15)) * time.Millisecond
		}
		res := &fakeResolver{delay: func(s string) time.Duration { return delays[s] }}
		a := NewAssembler(res, 0, nil)

		got := a.Movers(t.Context(), raws(gainers...), raws(losers...), true)

		if fmt.Sprint(symbolsOf(got.Gainers)) != fmt.Sprint(gainers) {
			t.Fatalf("round %d: gainers out of order: %v", round, symbolsOf(got.Gainers))
		}
		if fmt.Sprint(symbolsOf(got.Losers)) != fmt.Sprint(losers) {
			t.Fatalf("round %d: losers out of order: %v", round, symbolsOf(got.Losers))
		}
		for _, m := range append(got.Gainers, got.Losers...) {
			if m.Name != m.Symbol+" Inc" {
				t.Fatalf("round %d: metadata not joined to its record: %+v", round, m)
			}
		}
	}
}

func TestMovers_EnrichmentDisabled_NoCalls(t *testing.T) {
	res := &fakeResolver{}
	a := NewAssembler(res, 0, nil)
	got := a.Movers(t.Context(), raws("ACME"), raws("ZZZ"), false)

	if res.total() != 0 {
		t.Fatalf("resolver called %d times with enrichment disabled", res.total())
	}
	if got.Gainers[0].Name != "ACME" {
		t.Fatalf("want default name, got %q", got.Gainers[0].Name)
	}
	if want := "https://www.nasdaq.com/market-activity/stocks/acme"; got.Gainers[0].DeepLinkURL != want {
		t.Fatalf("want NASDAQ default link %s, got %s", want, got.Gainers[0].DeepLinkURL)
	}
}

func TestMovers_NilResolverFallsBackToDefaults(t *testing.T) {
	a := NewAssembler(nil, 0, nil)
	got := a.Movers(t.Context(), raws("ACME"), nil, true)
	if len(got.Gainers) != 1 || got.Gainers[0].Name != "ACME" {
		t.Fatalf("unexpected: %+v", got.Gainers)
	}
	if got.Losers == nil {
		t.Fatalf("losers must be an empty slice, not nil")
	}
}

func TestMovers_SharedSymbolResolvedOnce(t *testing.T) {
	res := &fakeResolver{delay: func(string) time.Duration { return 30 * time.Millisecond }}
	a := NewAssembler(res, 0, nil)
	got := a.Movers(t.Context(), raws("DUP", "A"), raws("DUP"), true)

	res.mu.Lock()
	dup := res.calls["DUP"]
	res.mu.Unlock()
	if dup != 1 {
		t.Fatalf("want one lookup for DUP, got %d", dup)
	}
	if got.Losers[0].Name != "DUP Inc" || got.Gainers[0].Name != "DUP Inc" {
		t.Fatalf("shared result not applied to both records: %+v %+v", got.Gainers[0], got.Losers[0])
	}
}

func TestMovers_ConcurrencyLimit(t *testing.T) {
	res := &fakeResolver{delay: func(string) time.Duration { return 5 * time.Millisecond }}
	a := NewAssembler(res, 3, nil)
	a.Movers(t.Context(), raws("A", "B", "C", "D", "E", "F"), raws("G", "H"), true)

	if p := res.peak.Load(); p > 3 {
		t.Fatalf("peak in-flight %d exceeds limit 3", p)
	}
	if res.total() != 8 {
		t.Fatalf("want 8 lookups, got %d", res.total())
	}
}

func TestMovers_IgnoresCallerCancellation(t *testing.T) {
	var sawCanceled atomic.Bool
	res := resolverFunc(func(ctx context.Context, symbol string) market.CompanyMetadata {
		if ctx.Err() != nil {
			sawCanceled.Store(true)
		}
		return market.CompanyMetadata{DisplayName: symbol + " Co", Exchange: "NYSE"}
	})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	got := NewAssembler(res, 0, nil).Movers(ctx, raws("A"), nil, true)
	if sawCanceled.Load() {
		t.Fatalf("resolver saw a canceled context")
	}
	if got.Gainers[0].Name != "A Co" {
		t.Fatalf("unexpected: %+v", got.Gainers[0])
	}
}

type resolverFunc func(ctx context.Context, symbol string) market.CompanyMetadata

func (f resolverFunc) Resolve(ctx context.Context, symbol string) market.CompanyMetadata {
	return f(ctx, symbol)
}

func TestMovers_BudgetBoundsEnrichment(t *testing.T) {
	var gainers, losers []string
	for i := range 20 {
		gainers = append(gainers, fmt.Sprintf("G%d", i))
		losers = append(losers, fmt.Sprintf("L%d", i))
	}
	res := resolverFunc(func(ctx context.Context, symbol string) market.CompanyMetadata {
		if symbol == "G0" {
			return market.CompanyMetadata{DisplayName: "G0 Inc", Exchange: "NYSE"}
		}
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
		return market.DefaultMetadata(symbol)
	})

	start := time.Now()
	got := NewAssembler(res, 8, nil, WithBudget(100*time.Millisecond)).Movers(t.Context(), raws(gainers...), raws(losers...), true)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("enrichment ran %v past a 100ms budget", elapsed)
	}

	if fmt.Sprint(symbolsOf(got.Gainers)) != fmt.Sprint(gainers) || fmt.Sprint(symbolsOf(got.Losers)) != fmt.Sprint(losers) {
		t.Fatalf("order not preserved: %v %v", symbolsOf(got.Gainers), symbolsOf(got.Losers))
	}
	if got.Gainers[0].Name != "G0 Inc" {
		t.Fatalf("resolved record lost: %+v", got.Gainers[0])
	}
	for _, m := range append(got.Gainers[1:], got.Losers...) {
		if m.Name != m.Symbol {
			t.Fatalf("unresolved record should keep default metadata: %+v", m)
		}
	}
}

func TestMovers_BudgetDoesNotWaitForStuckResolver(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	res := resolverFunc(func(_ context.Context, symbol string) market.CompanyMetadata {
		<-release
		return market.CompanyMetadata{DisplayName: symbol + " Late", Exchange: "NYSE"}
	})

	start := time.Now()
	got := NewAssembler(res, 2, nil, WithBudget(50*time.Millisecond)).Movers(t.Context(), raws("A", "B", "C"), nil, true)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("assembly waited %v for a resolver ignoring its context", elapsed)
	}
	for _, m := range got.Gainers {
		if m.Name != m.Symbol {
			t.Fatalf("late result leaked into payload: %+v", m)
		}
	}
}
