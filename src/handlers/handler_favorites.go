package handlers

import (
	"net/http"

	"placefinder/src/common"
	"placefinder/src/listing"
	"placefinder/src/pagination"
)

// HandleFavorites handles GET /api/favorites. Anonymous callers get an empty list.
func (a *API) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	page, err := a.Listing.Favorites(r.Context(), a.identify(r))
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// HandleFavoritePlaces handles GET /api/favorites/places.
func (a *API) HandleFavoritePlaces(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r.URL.Query(), pagination.DefaultLimit)

	page, err := a.Listing.FavoritePlaces(r.Context(), a.identify(r), params)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// HandleAddFavorite handles POST /api/favorites.
func (a *API) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	identity := a.identify(r)
	if identity == nil {
		a.writeFailure(w, r, common.AuthRequired())
		return
	}

	var input listing.FavoriteInput
	if err := decodeJSON(w, r, &input); err != nil {
		a.writeFailure(w, r, err)
		return
	}

	favorite, err := a.Listing.AddFavorite(r.Context(), identity, input)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, favorite)
}
