package httpx

import (
	"net"
	"net/http"
	"time"
)

// UserAgent is sent on every vendor request.
const UserAgent = "marketboard/1.0"

// NewTransport returns a transport tuned for a handful of concurrent calls to
// one or two vendor hosts.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   16,
		MaxConnsPerHost:       32,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
}

// New returns an http.Client with an overall per-request timeout.
// A non-positive timeout leaves the client unbounded; callers then rely on context deadlines.
func New(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{Timeout: timeout, Transport: NewTransport()}
}
