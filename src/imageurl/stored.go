package imageurl

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	objectSegment = "/storage/v1/object/public/"
	renderSegment = "/storage/v1/render/image/public/"

	// renderFit is the resize mode the render pipeline applies.
	renderFit = "contain"
)

// ClassifyStoredImage reports whether u is a raw stored object or its
// render-pipeline variant. Segments are matched on the escaped path, so a
// percent-encoded separator does not count as a match.
func ClassifyStoredImage(u string) Kind {
	_, kind := parseStored(u)
	return kind
}

func parseStored(u string) (*url.URL, Kind) {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return nil, KindUnknown
	}
	escaped := parsed.EscapedPath()
	switch {
	case strings.HasPrefix(escaped, renderSegment):
		return parsed, KindRenderedStored
	case strings.HasPrefix(escaped, objectSegment):
		return parsed, KindRawStored
	default:
		return parsed, KindUnknown
	}
}

// swapSegment replaces the leading from segment of the escaped path with to.
func swapSegment(parsed *url.URL, from, to string) bool {
	escaped := to + strings.TrimPrefix(parsed.EscapedPath(), from)
	decoded, err := url.PathUnescape(escaped)
	if err != nil {
		return false
	}
	parsed.Path = decoded
	parsed.RawPath = escaped
	return true
}

// OptimizeStoredImage rewrites a raw stored object URL to the render pipeline
// at the given width. Rendered and unrecognized URLs come back unchanged.
// A width of zero or less leaves sizing to the pipeline.
func OptimizeStoredImage(u string, width int) Image {
	parsed, kind := parseStored(u)
	if kind != KindRawStored || !swapSegment(parsed, objectSegment, renderSegment) {
		return Image{URL: u, Kind: kind}
	}

	params := url.Values{}
	if width > 0 {
		params.Set("width", strconv.Itoa(width))
	}
	params.Set("resize", renderFit)

	if parsed.RawQuery != "" {
		parsed.RawQuery += "&" + params.Encode()
	} else {
		parsed.RawQuery = params.Encode()
	}
	return Image{URL: parsed.String(), Kind: KindRenderedStored}
}

// RevertStoredImage maps a render-pipeline URL back to its raw object URL and
// drops every query parameter. The fragment is kept. Other URLs come back
// unchanged.
func RevertStoredImage(u string) Image {
	parsed, kind := parseStored(u)
	if kind != KindRenderedStored || !swapSegment(parsed, renderSegment, objectSegment) {
		return Image{URL: u, Kind: kind}
	}

	parsed.RawQuery = ""
	parsed.ForceQuery = false
	return Image{URL: parsed.String(), Kind: KindRawStored}
}

// OptimizeStoredImages applies OptimizeStoredImage to every URL.
func OptimizeStoredImages(urls []string, width int) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = OptimizeStoredImage(u, width).URL
	}
	return out
}

// RevertStoredImages applies RevertStoredImage to every URL.
func RevertStoredImages(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = RevertStoredImage(u).URL
	}
	return out
}
