package imageurl

import (
	"net/url"
	"regexp"
	"strings"
)

const searchCDNPrefix = "https://search.pstatic.net/common/?"

// rawSearchImage matches the provider's origin image hosts, e.g. ldb-phinf.pstatic.net.
var rawSearchImage = regexp.MustCompile(`^https?://[a-z0-9-]+-phinf\.pstatic\.net/`)

// ClassifySearchImage reports whether u is a raw or optimized search image.
func ClassifySearchImage(u string) Kind {
	switch {
	case strings.HasPrefix(u, searchCDNPrefix):
		return KindOptimizedSearch
	case rawSearchImage.MatchString(u):
		return KindRawSearch
	default:
		return KindUnknown
	}
}

// OptimizeSearchImage routes a raw search image through the resizing CDN.
// Optimized and unrecognized URLs come back unchanged.
func OptimizeSearchImage(u string) Image {
	kind := ClassifySearchImage(u)
	if kind != KindRawSearch {
		return Image{URL: u, Kind: kind}
	}

	params := url.Values{}
	params.Set("autoRotate", "true")
	params.Set("type", "w560_sharpen")
	params.Set("src", u)

	return Image{URL: searchCDNPrefix + params.Encode(), Kind: KindOptimizedSearch}
}
