package handlers

import (
	"net/http"

	"placefinder/src/listing"
	"placefinder/src/searchcache"
)

// HandleSearch handles GET /api/search. The provider owns paging through
// start, so the response is the bare item array.
func (a *API) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items, err := a.Listing.Search(r.Context(), listing.SearchRequest{
		Query:     query.Get("query"),
		Display:   intParam(r, "display", searchcache.DefaultDisplay),
		Start:     intParam(r, "start", 1),
		OriginLng: query.Get("lng"),
		OriginLat: query.Get("lat"),
	})
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, items)
}
