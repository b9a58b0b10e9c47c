// Package imageurl rewrites image URLs between their raw and CDN-optimized
// forms. Search-result images and stored review assets have separate
// pipelines; neither one touches URLs that belong to the other.
package imageurl

// Kind tags which form a URL is in.
type Kind int

const (
	KindUnknown Kind = iota
	KindRawSearch
	KindOptimizedSearch
	KindRawStored
	KindRenderedStored
)

func (k Kind) String() string {
	switch k {
	case KindRawSearch:
		return "raw-search"
	case KindOptimizedSearch:
		return "optimized-search"
	case KindRawStored:
		return "raw-stored"
	case KindRenderedStored:
		return "rendered-stored"
	default:
		return "unknown"
	}
}

// Image is the result of a rewrite: the URL and the form it ended up in.
type Image struct {
	URL  string
	Kind Kind
}
