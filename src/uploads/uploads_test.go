package uploads

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
	"placefinder/src/imageurl"
	"placefinder/src/types"
)

type fakeStore struct {
	key         string
	data        []byte
	contentType string
	err         error
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.key, f.data, f.contentType = key, data, contentType
	return f.err
}

func pngBytes(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))
	return &buf
}

var testConfig = common.UploadsConfig{
	Bucket:        "review-images",
	PublicBaseURL: "https://abc.supabase.co/",
}

func newTestService(store ObjectStore) *Service {
	s := NewService(testConfig, 480, store, imageurl.NewJPEGCompressor(0, 0, 0), arbor.NewLogger())
	s.newID = func() string { return "fixed-id" }
	return s
}

func TestService_Upload(t *testing.T) {
	store := &fakeStore{}
	result, err := newTestService(store).Upload(context.Background(), &types.Identity{UserID: "u1"}, pngBytes(t))
	require.NoError(t, err)

	assert.Equal(t, "reviews/u1/fixed-id.jpg", store.key)
	assert.Equal(t, "image/jpeg", store.contentType)
	assert.NotEmpty(t, store.data)

	assert.Equal(t, "https://abc.supabase.co/storage/v1/object/public/review-images/reviews/u1/fixed-id.jpg", result.URL)
	assert.True(t, strings.HasPrefix(result.OptimizedURL, "https://abc.supabase.co/storage/v1/render/image/public/review-images/"))
	assert.Contains(t, result.OptimizedURL, "width=480")
	assert.Equal(t, result.URL, imageurl.RevertStoredImage(result.OptimizedURL).URL)
	assert.Equal(t, 40, result.Width)
}

func TestService_UploadErrors(t *testing.T) {
	ctx := context.Background()
	user := &types.Identity{UserID: "u1"}

	_, err := newTestService(&fakeStore{}).Upload(ctx, nil, pngBytes(t))
	assert.True(t, errors.Is(err, common.ErrAuthRequired))

	_, err = newTestService(nil).Upload(ctx, user, pngBytes(t))
	assert.True(t, errors.Is(err, common.ErrConfiguration))

	_, err = newTestService(&fakeStore{}).Upload(ctx, user, strings.NewReader("not an image"))
	assert.True(t, errors.Is(err, common.ErrClientInput))

	_, err = newTestService(&fakeStore{err: errors.New("bucket gone")}).Upload(ctx, user, pngBytes(t))
	assert.True(t, errors.Is(err, common.ErrUpstreamUnavailable))
}

func TestService_UploadRejectsUnsafeUserIDs(t *testing.T) {
	for _, id := range []string{"..", ".", "../admin", "a/b", `a\b`} {
		store := &fakeStore{}
		_, err := newTestService(store).Upload(context.Background(), &types.Identity{UserID: id}, pngBytes(t))
		assert.True(t, errors.Is(err, common.ErrClientInput), id)
		assert.Empty(t, store.key, id)
	}
}

func TestNewMinioStore(t *testing.T) {
	store, err := NewMinioStore(common.UploadsConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = NewMinioStore(common.UploadsConfig{Endpoint: "localhost:9000"})
	assert.True(t, errors.Is(err, common.ErrConfiguration))

	store, err = NewMinioStore(common.UploadsConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.NotNil(t, store)
}
