package dashboard

import (
	"context"

	"go.uber.org/zap"

	"marketboard/internal/logging"
	"marketboard/internal/market"
	"marketboard/internal/normalize"
	"marketboard/internal/provider"
)

// Service answers the two dashboard queries. The primary vendor call is made
// once and sequentially; if it fails the whole query fails.
type Service struct {
	fetcher   provider.Fetcher
	assembler *Assembler
	enrich    bool
	log       *zap.Logger
}

func NewService(fetcher provider.Fetcher, assembler *Assembler, enrich bool, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{fetcher: fetcher, assembler: assembler, enrich: enrich, log: log}
}

// Movers fetches the movers list and assembles the payload.
func (s *Service) Movers(ctx context.Context) (market.MoversPayload, error) {
	body, err := s.fetcher.Fetch(ctx, provider.EndpointMovers, nil)
	if err != nil {
		return market.MoversPayload{}, err
	}
	list, err := normalize.DecodeMovers(body)
	if err != nil {
		return market.MoversPayload{}, &provider.UpstreamError{Endpoint: provider.EndpointMovers, Err: err}
	}
	logging.FromContext(ctx, s.log).Debug("movers list decoded",
		zap.Int("gainers", len(list.Gainers)),
		zap.Int("losers", len(list.Losers)),
		zap.Bool("enrich", s.enrich),
	)
	return s.assembler.Movers(ctx, list.Gainers, list.Losers, s.enrich), nil
}

// News fetches and normalizes the news feed.
func (s *Service) News(ctx context.Context) ([]market.NewsItem, error) {
	body, err := s.fetcher.Fetch(ctx, provider.EndpointNews, nil)
	if err != nil {
		return nil, err
	}
	news, err := normalize.DecodeNews(body)
	if err != nil {
		return nil, &provider.UpstreamError{Endpoint: provider.EndpointNews, Err: err}
	}
	return news, nil
}
