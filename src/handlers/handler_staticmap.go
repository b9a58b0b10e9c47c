package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"placefinder/src/common"
	"placefinder/src/staticmap"
)

// HandleStaticMap handles GET /api/static-map and relays the provider's image.
func (a *API) HandleStaticMap(w http.ResponseWriter, r *http.Request) {
	if a.StaticMap == nil {
		a.writeFailure(w, r, common.Configuration("static map proxy is not configured"))
		return
	}

	image, err := a.StaticMap.Fetch(r.Context(), staticmap.RequestFromQuery(r.URL.Query()))
	if err != nil {
		if relayStatus(w, err) {
			return
		}
		a.writeFailure(w, r, err)
		return
	}

	if image.ContentType != "" {
		w.Header().Set("Content-Type", image.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(image.Data)
}

// relayStatus writes a provider rejection with the provider's own status and body.
func relayStatus(w http.ResponseWriter, err error) bool {
	var statusErr *staticmap.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if statusErr.ContentType != "" {
		w.Header().Set("Content-Type", statusErr.ContentType)
	}
	w.WriteHeader(statusErr.Status)
	w.Write(statusErr.Body)
	return true
}
