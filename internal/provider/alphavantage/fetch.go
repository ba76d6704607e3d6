package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
	"unicode/utf8"

	"marketboard/internal/provider"
)

// Fetch performs one GET against the route registered for endpoint.
// The request is never retried.
func (c *Client) Fetch(ctx context.Context, endpoint provider.Endpoint, params map[string]string) (json.RawMessage, error) {
	if strings.TrimSpace(c.key) == "" {
		return nil, &provider.ConfigurationError{Setting: "API_KEY"}
	}
	route, ok := c.routes[endpoint]
	if !ok {
		return nil, &provider.UpstreamError{Endpoint: endpoint, Err: errors.New("no route configured")}
	}

	query := maps.Clone(route.Params)
	if query == nil {
		query = map[string]string{}
	}
	maps.Copy(query, params)
	if isAbsolute(route.Path) {
		// another vendor's feed; the key is only for Alpha Vantage
		delete(query, keyParam)
	} else {
		query[keyParam] = c.key
	}

	res, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(route.Path)
	if err != nil {
		return nil, &provider.UpstreamError{Endpoint: endpoint, Err: redact(err)}
	}

	if !res.IsSuccess() {
		return nil, &provider.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: res.StatusCode(),
			Err:        fmt.Errorf("unexpected status %q", res.Status()),
		}
	}

	body := bytes.TrimSpace(res.Body())
	if len(body) == 0 || !json.Valid(body) {
		return nil, &provider.UpstreamError{Endpoint: endpoint, StatusCode: res.StatusCode(), Err: provider.ErrMalformedBody}
	}
	if err := vendorMessage(body); err != nil {
		return nil, &provider.UpstreamError{Endpoint: endpoint, StatusCode: res.StatusCode(), Err: err}
	}
	return json.RawMessage(body), nil
}

func isAbsolute(path string) bool {
	u, err := url.Parse(path)
	return err == nil && u.IsAbs()
}

// redact drops the request URL from transport errors; it carries the key.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s request: %w", strings.ToLower(ue.Op), ue.Err)
	}
	return err
}

// vendorMessage detects the 2xx notices Alpha Vantage sends instead of data:
// {"Error Message": ...} for bad calls, and a lone {"Note": ...} or
// {"Information": ...} when the key is throttled.
func vendorMessage(body []byte) error {
	if body[0] != '{' {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil
	}
	if msg, ok := obj["Error Message"]; ok {
		return fmt.Errorf("%w: %s", provider.ErrVendorMessage, text(msg))
	}
	if len(obj) != 1 {
		return nil
	}
	for _, key := range []string{"Note", "Information"} {
		if msg, ok := obj[key]; ok {
			return fmt.Errorf("%w: %s", provider.ErrVendorMessage, text(msg))
		}
	}
	return nil
}

func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	const limit = 200
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
