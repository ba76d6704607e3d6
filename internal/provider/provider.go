package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Endpoint names an upstream vendor resource.
type Endpoint int

const (
	EndpointMovers Endpoint = iota + 1
	EndpointNews
	EndpointCompanyOverview
)

func (e Endpoint) String() string {
	switch e {
	case EndpointMovers:
		return "movers-list"
	case EndpointNews:
		return "news-feed"
	case EndpointCompanyOverview:
		return "company-overview"
	default:
		return fmt.Sprintf("endpoint(%d)", int(e))
	}
}

// Fetcher issues a single GET against a vendor endpoint and returns the raw JSON body.
//
//go:generate mockgen -package=mocks -destination=mocks/mock_fetcher.go -source=provider.go Fetcher
type Fetcher interface {
	Fetch(ctx context.Context, endpoint Endpoint, params map[string]string) (json.RawMessage, error)
}

var (
	// ErrMalformedBody is wrapped by UpstreamError when a 2xx body is not JSON.
	ErrMalformedBody = errors.New("malformed response body")
	// ErrVendorMessage is wrapped by UpstreamError when the vendor answers 2xx with an error notice.
	ErrVendorMessage = errors.New("vendor returned an error message")
)

// ConfigurationError reports a required setting that is missing.
// No network call is made when it is returned.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s not set", e.Setting)
}

// UpstreamError reports a failed primary vendor call.
type UpstreamError struct {
	Endpoint   Endpoint
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
