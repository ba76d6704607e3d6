package app

import (
	"strings"

	"go.uber.org/zap"

	"marketboard/internal/config"
	"marketboard/internal/dashboard"
	"marketboard/internal/enrich"
	"marketboard/internal/httpx"
	"marketboard/internal/provider"
	"marketboard/internal/provider/alphavantage"
	"marketboard/internal/provider/ratelimit"
)

// NewFetcher builds the vendor client described by cfg, wrapped in the
// configured rate gate. Extra options are applied last; tests use them to
// swap the transport.
func NewFetcher(cfg config.Config, log *zap.Logger, extra ...alphavantage.Option) provider.Fetcher {
	av := cfg.AlphaVantage

	routes := alphavantage.DefaultRoutes()
	news := routes[provider.EndpointNews]
	if av.NewsTopics != "" {
		news.Params["topics"] = av.NewsTopics
	}
	if url := strings.TrimSpace(av.NewsFeedURL); url != "" {
		news = alphavantage.Route{Path: url}
	}

	opts := []alphavantage.Option{
		alphavantage.WithBaseURL(av.BaseURL),
		alphavantage.WithHTTPClient(httpx.New(av.Timeout())),
		alphavantage.WithRoute(provider.EndpointNews, news),
	}
	if log != nil {
		opts = append(opts, alphavantage.WithLogger(log.Named("resty").Sugar()))
	}
	opts = append(opts, extra...)

	client := alphavantage.New(av.APIKey, opts...)
	if strings.TrimSpace(av.APIKey) == "" {
		// every call fails before the network; a gate would only delay the error
		return client
	}
	return ratelimit.Wrap(client, av.MaxRequestsPerMinute, av.Burst, av.MinInterval())
}

// NewService wires the dashboard service on top of fetcher.
func NewService(cfg config.Config, fetcher provider.Fetcher, log *zap.Logger) *dashboard.Service {
	if log == nil {
		log = zap.NewNop()
	}
	resolver := enrich.New(fetcher, cfg.Enrichment.Timeout(), log.Named("enrich"))
	assembler := dashboard.NewAssembler(resolver, cfg.Enrichment.MaxConcurrency, log.Named("assembler"),
		dashboard.WithBudget(cfg.Enrichment.Budget()))
	return dashboard.NewService(fetcher, assembler, cfg.Enrichment.Enabled, log.Named("dashboard"))
}
