package handlers

import (
	"net/http"
	"strconv"

	"placefinder/src/common"
	"placefinder/src/geo"
	"placefinder/src/listing"
	"placefinder/src/pagination"
	"placefinder/src/token"
	"placefinder/src/types"
)

type Recommendation struct {
	Name   string              `json:"name"`
	Places []types.NearbyPlace `json:"places"`
}

// HandleOwnedPlaces handles GET /api/me/places.
func (a *API) HandleOwnedPlaces(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r.URL.Query(), pagination.DefaultLimit)

	page, err := a.Listing.OwnedPlaces(r.Context(), a.identify(r), params)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// HandleRecommend handles GET /api/recommend?lat=&lon=.
func (a *API) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		WriteError(w, http.StatusBadRequest, "Missing latitude or longitude")
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		WriteError(w, http.StatusBadRequest, "Invalid latitude")
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		WriteError(w, http.StatusBadRequest, "Invalid longitude")
		return
	}

	size := intParam(r, "size", listing.DefaultNearbySize)
	places, err := a.Listing.Nearby(r.Context(), geo.Coordinates{Lat: lat, Lng: lon}, size)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, Recommendation{
		Name:   "Recommendation",
		Places: places,
	})
}

// HandleGetToken handles POST /api/get_token.
func (a *API) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	var creds token.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		a.writeFailure(w, r, err)
		return
	}

	if a.Tokens == nil {
		a.writeFailure(w, r, common.Configuration("token issuing is not configured"))
		return
	}
	signed, err := a.Tokens.Issue(creds)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"token": signed})
}
