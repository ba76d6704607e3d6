package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"marketboard/internal/logging"
	"marketboard/internal/market"
	"marketboard/internal/provider"
)

type dashboardService interface {
	Movers(ctx context.Context) (market.MoversPayload, error)
	News(ctx context.Context) ([]market.NewsItem, error)
}

type api struct {
	svc     dashboardService
	log     *zap.Logger
	timeout time.Duration
	maxAge  int
}

type errorResponse struct {
	Message string `json:"message"`
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/top-movers", a.handleMovers)
	mux.HandleFunc("GET /api/news", a.handleNews)
	// path alias only; the body uses the current field names (publishedAt)
	mux.HandleFunc("GET /api/yahoo-finance-news", a.handleNews)

	return withRequestID(a.accessLog(withJSONHeaders(withGzip(a.recoverPanic(mux)))))
}

func (a *api) handleMovers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.requestContext(r)
	defer cancel()

	payload, err := a.svc.Movers(ctx)
	if err != nil {
		a.fail(w, r, err, "Failed to fetch top movers")
		return
	}
	a.ok(w, payload)
}

func (a *api) handleNews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.requestContext(r)
	defer cancel()

	news, err := a.svc.News(ctx)
	if err != nil {
		a.fail(w, r, err, "Failed to fetch news")
		return
	}
	a.ok(w, market.NewsPayload{News: news})
}

func (a *api) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), a.timeout)
}

func (a *api) ok(w http.ResponseWriter, body any) {
	if a.maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, s-maxage=%d", a.maxAge, a.maxAge))
	}
	writeJSON(w, http.StatusOK, body)
}

// fail logs the full error and answers with a generic message; the detail
// never reaches the client.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	log := logging.FromContext(r.Context(), a.log)
	if provider.IsConfiguration(err) {
		log.Error("vendor credential missing", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "API key not configured"})
		return
	}
	var upstream *provider.UpstreamError
	if errors.As(err, &upstream) {
		log.Error(message,
			zap.Stringer("endpoint", upstream.Endpoint),
			zap.Int("status", upstream.StatusCode),
			zap.Error(err),
		)
	} else {
		log.Error(message, zap.Error(err))
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(body)
}
