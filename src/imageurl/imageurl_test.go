package imageurl

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rawSearch = "https://ldb-phinf.pstatic.net/20230101_1/photo.jpg?type=f&x=1"
	rawStored = "https://abc.supabase.co/storage/v1/object/public/review-images/u1/a.jpg"
)

func TestOptimizeSearchImage(t *testing.T) {
	img := OptimizeSearchImage(rawSearch)

	assert.Equal(t, KindOptimizedSearch, img.Kind)
	require.True(t, strings.HasPrefix(img.URL, searchCDNPrefix))

	parsed, err := url.Parse(img.URL)
	require.NoError(t, err)
	assert.Equal(t, rawSearch, parsed.Query().Get("src"))
	assert.Equal(t, "true", parsed.Query().Get("autoRotate"))
	assert.Equal(t, "w560_sharpen", parsed.Query().Get("type"))
	assert.NotContains(t, img.URL, "photo.jpg?type", "inner URL is percent-encoded")
}

func TestOptimizeSearchImage_Idempotent(t *testing.T) {
	for _, u := range []string{rawSearch, "http://myplace-phinf.pstatic.net/a.png", rawStored, "", "not a url"} {
		once := OptimizeSearchImage(u).URL
		twice := OptimizeSearchImage(once).URL
		assert.Equal(t, once, twice, u)
	}
}

func TestOptimizeSearchImage_LeavesOtherURLs(t *testing.T) {
	for _, u := range []string{rawStored, "https://example.com/a.jpg", "", "::"} {
		img := OptimizeSearchImage(u)
		assert.Equal(t, u, img.URL)
	}
	assert.Equal(t, KindUnknown, OptimizeSearchImage(rawStored).Kind)
}

func TestOptimizeStoredImage(t *testing.T) {
	img := OptimizeStoredImage(rawStored, 480)

	assert.Equal(t, KindRenderedStored, img.Kind)
	assert.Equal(t,
		"https://abc.supabase.co/storage/v1/render/image/public/review-images/u1/a.jpg?resize=contain&width=480",
		img.URL)
}

func TestOptimizeStoredImage_NoWidth(t *testing.T) {
	img := OptimizeStoredImage(rawStored, 0)
	assert.True(t, strings.HasSuffix(img.URL, "?resize=contain"))
}

func TestOptimizeStoredImage_Idempotent(t *testing.T) {
	for _, u := range []string{rawStored, rawStored + "?token=x", rawSearch, "", "https://example.com/x"} {
		once := OptimizeStoredImage(u, 480).URL
		twice := OptimizeStoredImage(once, 480).URL
		assert.Equal(t, once, twice, u)
	}
}

func TestOptimizeStoredImage_LeavesSearchImages(t *testing.T) {
	img := OptimizeStoredImage(rawSearch, 480)
	assert.Equal(t, rawSearch, img.URL)
	assert.Equal(t, KindUnknown, img.Kind)

	optimized := OptimizeSearchImage(rawSearch).URL
	assert.Equal(t, optimized, OptimizeStoredImage(optimized, 480).URL)
}

func TestRevertStoredImage_RoundTrip(t *testing.T) {
	for _, u := range []string{
		rawStored,
		"https://cdn.example.com/storage/v1/object/public/b/nested/dir/photo.webp",
		"http://localhost:54321/storage/v1/object/public/b/x.png",
	} {
		for _, width := range []int{0, 320, 480} {
			assert.Equal(t, u, RevertStoredImage(OptimizeStoredImage(u, width).URL).URL)
		}
	}
}

func TestStoredImage_EncodedSegment(t *testing.T) {
	encoded := "https://abc.supabase.co/storage/v1/object/public%2Freviews/a.jpg"
	img := OptimizeStoredImage(encoded, 480)
	assert.Equal(t, KindUnknown, img.Kind)
	assert.Equal(t, encoded, img.URL)
	assert.Equal(t, img.URL, OptimizeStoredImage(img.URL, 480).URL)

	rendered := "https://abc.supabase.co/storage/v1/render/image/public%2Fa.jpg?width=1"
	img = RevertStoredImage(rendered)
	assert.Equal(t, KindUnknown, img.Kind)
	assert.Equal(t, rendered, img.URL)
}

func TestStoredImage_EscapedObjectName(t *testing.T) {
	u := "https://abc.supabase.co/storage/v1/object/public/b/my%20photo.jpg"
	img := OptimizeStoredImage(u, 480)
	assert.Equal(t,
		"https://abc.supabase.co/storage/v1/render/image/public/b/my%20photo.jpg?resize=contain&width=480",
		img.URL)
	assert.Equal(t, u, RevertStoredImage(img.URL).URL)
}

func TestStoredImage_FragmentRoundTrip(t *testing.T) {
	u := rawStored + "#x"
	img := OptimizeStoredImage(u, 480)
	assert.Equal(t,
		"https://abc.supabase.co/storage/v1/render/image/public/review-images/u1/a.jpg?resize=contain&width=480#x",
		img.URL)
	assert.Equal(t, img.URL, OptimizeStoredImage(img.URL, 480).URL)
	assert.Equal(t, u, RevertStoredImage(img.URL).URL)
}

func TestRevertStoredImage_StripsQuery(t *testing.T) {
	img := RevertStoredImage("https://abc.supabase.co/storage/v1/render/image/public/b/a.jpg?width=100&quality=20")
	assert.Equal(t, "https://abc.supabase.co/storage/v1/object/public/b/a.jpg", img.URL)
	assert.Equal(t, KindRawStored, img.Kind)
}

func TestRevertStoredImage_RawIsNoop(t *testing.T) {
	for _, u := range []string{rawStored, rawSearch, "", "https://example.com/a.jpg?x=1"} {
		assert.Equal(t, u, RevertStoredImage(u).URL)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindRawSearch, ClassifySearchImage(rawSearch))
	assert.Equal(t, KindRawStored, ClassifyStoredImage(rawStored))
	assert.Equal(t, KindUnknown, ClassifyStoredImage("/storage/v1/object/public/relative.jpg"))
	assert.Equal(t, "rendered-stored", KindRenderedStored.String())
}

func TestBulkHelpers(t *testing.T) {
	optimized := OptimizeStoredImages([]string{rawStored, rawSearch}, 480)
	require.Len(t, optimized, 2)
	assert.Equal(t, KindRenderedStored, ClassifyStoredImage(optimized[0]))
	assert.Equal(t, rawSearch, optimized[1])

	assert.Equal(t, []string{rawStored, rawSearch}, RevertStoredImages(optimized))
	assert.Empty(t, OptimizeStoredImages(nil, 480))
}
