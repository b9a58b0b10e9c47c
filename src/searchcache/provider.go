package searchcache

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"placefinder/src/types"
)

const (
	defaultTimeout = 5 * time.Second

	detailOperationName = "getPlaceDetail"

	placesListQuery = `query getPlacesList($input: PlacesInput) {
  places(input: $input) {
    items { id name category address roadAddress phone x y imageUrl menus }
  }
}`

	placeDetailQuery = `query getPlaceDetail($input: PlaceDetailInput) {
  placeDetail(input: $input) { id name menus { name price } }
}`
)

// ErrMalformedPayload is returned when the provider answers 2xx with a body
// that does not have the expected shape.
var ErrMalformedPayload = errors.New("provider payload has unexpected shape")

// Query is a single provider search.
type Query struct {
	Query   string
	Display int
	Start   int
}

// Provider is the external place-search backend.
type Provider interface {
	Search(ctx context.Context, q Query) ([]types.SearchResultItem, error)
	PlaceDetail(ctx context.Context, id string) (*types.PlaceDetail, error)
}

// ClientConfig configures GraphQLClient. Zero Timeout means five seconds;
// zero RateLimit disables limiting.
type ClientConfig struct {
	Endpoint      string
	OperationName string
	UserAgent     string
	Referer       string
	Origin        string
	Timeout       time.Duration
	RateLimit     float64
	Burst         int
}

// GraphQLClient calls the provider's mobile-web GraphQL endpoint.
type GraphQLClient struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// NewGraphQLClient creates a provider client. A nil httpClient gets one with
// the configured timeout.
func NewGraphQLClient(config ClientConfig, httpClient *http.Client, logger arbor.ILogger) *GraphQLClient {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.OperationName == "" {
		config.OperationName = "getPlacesList"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &GraphQLClient{
		config:     config,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

type graphQLRequest struct {
	OperationName string    `json:"operationName"`
	Variables     variables `json:"variables"`
	Query         string    `json:"query"`
}

type variables struct {
	Input interface{} `json:"input"`
}

type searchInput struct {
	Query   string `json:"query"`
	Display int    `json:"display"`
	Start   int    `json:"start"`
}

type detailInput struct {
	ID string `json:"id"`
}

type searchResponse struct {
	Data *struct {
		Places *struct {
			Items *[]types.SearchResultItem `json:"items"`
		} `json:"places"`
	} `json:"data"`
}

type detailResponse struct {
	Data *struct {
		PlaceDetail *types.PlaceDetail `json:"placeDetail"`
	} `json:"data"`
}

// Search runs one places-list query.
func (c *GraphQLClient) Search(ctx context.Context, q Query) ([]types.SearchResultItem, error) {
	body := []graphQLRequest{{
		OperationName: c.config.OperationName,
		Variables:     variables{Input: searchInput{Query: q.Query, Display: q.Display, Start: q.Start}},
		Query:         placesListQuery,
	}}

	var resp []searchResponse
	if err := c.post(ctx, body, &resp); err != nil {
		return nil, err
	}

	if len(resp) == 0 || resp[0].Data == nil || resp[0].Data.Places == nil || resp[0].Data.Places.Items == nil {
		return nil, ErrMalformedPayload
	}

	items := *resp[0].Data.Places.Items
	c.logger.Debug().
		Str("query", q.Query).
		Int("display", q.Display).
		Int("start", q.Start).
		Int("results_count", len(items)).
		Msg("Provider search completed")

	return items, nil
}

// PlaceDetail looks up a single place with its menu list.
func (c *GraphQLClient) PlaceDetail(ctx context.Context, id string) (*types.PlaceDetail, error) {
	body := []graphQLRequest{{
		OperationName: detailOperationName,
		Variables:     variables{Input: detailInput{ID: id}},
		Query:         placeDetailQuery,
	}}

	var resp []detailResponse
	if err := c.post(ctx, body, &resp); err != nil {
		return nil, err
	}

	if len(resp) == 0 || resp[0].Data == nil || resp[0].Data.PlaceDetail == nil {
		return nil, ErrMalformedPayload
	}
	return resp[0].Data.PlaceDetail, nil
}

// post sends one batched GraphQL request within the hard timeout, including
// any time spent waiting on the rate limiter.
func (c *GraphQLClient) post(ctx context.Context, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.Referer != "" {
		req.Header.Set("Referer", c.config.Referer)
	}
	if c.config.Origin != "" {
		req.Header.Set("Origin", c.config.Origin)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call provider")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("provider returned status %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Mark(errors.Wrap(err, "failed to decode provider response"), ErrMalformedPayload)
	}
	return nil
}

var _ Provider = (*GraphQLClient)(nil)
