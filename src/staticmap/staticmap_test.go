package staticmap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
)

func newTestClient(endpoint string) *Client {
	return NewClient(common.StaticMapConfig{
		Endpoint:     endpoint,
		ClientID:     "id",
		ClientSecret: "secret",
		Timeout:      "1s",
	}, nil, arbor.NewLogger())
}

func TestRequestFromQuery(t *testing.T) {
	query, err := url.ParseQuery("center=127.1,37.3&w=300&h=200&level=16&token=leak&markers=a&markers=b&lang=ko")
	require.NoError(t, err)

	req := RequestFromQuery(query)
	assert.Equal(t, "127.1,37.3", req.Center)
	assert.Equal(t, []string{"a", "b"}, req.Markers)
	assert.Equal(t, "300", req.Params.Get("w"))
	assert.Equal(t, "ko", req.Params.Get("lang"))
	assert.Empty(t, req.Params.Get("token"))
	assert.Empty(t, req.Params.Get("center"))
}

func TestClient_Fetch(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG"))
	}))
	defer server.Close()

	query, _ := url.ParseQuery("center=127.1,37.3&w=300&markers=type:d|pos:127.1 37.3&markers=type:t")
	image, err := newTestClient(server.URL).Fetch(context.Background(), RequestFromQuery(query))
	require.NoError(t, err)

	assert.Equal(t, "image/png", image.ContentType)
	assert.Equal(t, []byte("\x89PNG"), image.Data)
	assert.Equal(t, "id", got.Header.Get(headerKeyID))
	assert.Equal(t, "secret", got.Header.Get(headerKey))
	assert.Equal(t, "127.1,37.3", got.URL.Query().Get("center"))
	assert.Equal(t, []string{"type:d|pos:127.1 37.3", "type:t"}, got.URL.Query()["markers"])
}

func TestClient_FetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"quota"}`))
	}))
	defer server.Close()
	ctx := context.Background()

	t.Run("missing center before credentials", func(t *testing.T) {
		client := NewClient(common.StaticMapConfig{Endpoint: server.URL}, nil, arbor.NewLogger())
		_, err := client.Fetch(ctx, Request{})
		assert.Equal(t, http.StatusBadRequest, common.StatusCode(err))
	})

	t.Run("missing credentials", func(t *testing.T) {
		client := NewClient(common.StaticMapConfig{Endpoint: server.URL}, nil, arbor.NewLogger())
		_, err := client.Fetch(ctx, Request{Center: "1,2"})
		assert.True(t, errors.Is(err, common.ErrConfiguration))
		assert.Equal(t, http.StatusInternalServerError, common.StatusCode(err))
	})

	t.Run("provider status relayed", func(t *testing.T) {
		_, err := newTestClient(server.URL).Fetch(ctx, Request{Center: "1,2"})
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusForbidden, statusErr.Status)
		assert.Equal(t, `{"error":"quota"}`, string(statusErr.Body))
	})

	t.Run("transport failure", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		_, err := newTestClient(dead.URL).Fetch(ctx, Request{Center: "1,2"})
		assert.Equal(t, http.StatusBadGateway, common.StatusCode(err))
	})
}
