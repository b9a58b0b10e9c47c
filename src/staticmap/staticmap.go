// Package staticmap proxies static map image requests to the map provider,
// injecting the server-held API credentials.
package staticmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
)

const (
	defaultTimeout = 5 * time.Second
	maxImageBytes  = 10 << 20

	headerKeyID = "X-NCP-APIGW-API-KEY-ID"
	headerKey   = "X-NCP-APIGW-API-KEY"
)

// passThrough is the set of query parameters forwarded as is.
var passThrough = []string{"w", "h", "level", "scale", "maptype", "format", "lang"}

// Request is a static map lookup. Params holds only allow-listed keys.
type Request struct {
	Center  string
	Params  url.Values
	Markers []string
}

// RequestFromQuery keeps center, the allow-listed parameters, and every markers value.
func RequestFromQuery(query url.Values) Request {
	params := url.Values{}
	for _, key := range passThrough {
		if v := query.Get(key); v != "" {
			params.Set(key, v)
		}
	}
	return Request{
		Center:  query.Get("center"),
		Params:  params,
		Markers: query["markers"],
	}
}

type Image struct {
	ContentType string
	Data        []byte
}

// StatusError carries a non-2xx provider response so it can be relayed verbatim.
type StatusError struct {
	Status      int
	ContentType string
	Body        []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("static map provider returned status %d", e.Status)
}

type Client struct {
	config     common.StaticMapConfig
	httpClient *http.Client
	logger     arbor.ILogger
}

func NewClient(config common.StaticMapConfig, httpClient *http.Client, logger arbor.ILogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: common.ParseDuration(config.Timeout, defaultTimeout)}
	}
	return &Client{config: config, httpClient: httpClient, logger: logger}
}

// Fetch returns the rendered image. A missing center is a client error and
// missing credentials a configuration error, checked in that order.
func (c *Client) Fetch(ctx context.Context, req Request) (*Image, error) {
	if req.Center == "" {
		return nil, common.ClientInput("center is required")
	}
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return nil, common.Configuration("static map credentials are not configured")
	}

	query := url.Values{}
	for key, values := range req.Params {
		query[key] = append([]string(nil), values...)
	}
	query.Set("center", req.Center)
	for _, marker := range req.Markers {
		query.Add("markers", marker)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build static map request")
	}
	httpReq.Header.Set(headerKeyID, c.config.ClientID)
	httpReq.Header.Set(headerKey, c.config.ClientSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Str("center", req.Center).Msg("Static map request failed")
		return nil, common.UpstreamUnavailable(errors.Wrap(err, "failed to call static map provider"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, common.UpstreamUnavailable(errors.Wrap(err, "failed to read static map response"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("center", req.Center).Msg("Static map provider rejected request")
		return nil, &StatusError{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}
	}

	return &Image{ContentType: resp.Header.Get("Content-Type"), Data: body}, nil
}
