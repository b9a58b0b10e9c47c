package handlers

import (
	"net/http"

	"placefinder/src/common"
	"placefinder/src/listing"
	"placefinder/src/pagination"
)

// HandleMyReviews handles GET /api/me/reviews.
func (a *API) HandleMyReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r.URL.Query(), pagination.DefaultLimit)

	page, err := a.Listing.ReviewsByUser(r.Context(), a.identify(r), params)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// HandlePlaceReviews handles GET /api/places/{id}/reviews.
func (a *API) HandlePlaceReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r.URL.Query(), pagination.DefaultLimit)

	page, err := a.Listing.ReviewsByPlace(r.Context(), r.PathValue("id"), params)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// HandleCreateReview handles POST /api/places/{id}/reviews.
func (a *API) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	identity := a.identify(r)
	if identity == nil {
		a.writeFailure(w, r, common.AuthRequired())
		return
	}

	var input listing.ReviewInput
	if err := decodeJSON(w, r, &input); err != nil {
		a.writeFailure(w, r, err)
		return
	}

	review, err := a.Listing.CreateReview(r.Context(), identity, r.PathValue("id"), input)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, review)
}

// HandleMenus handles GET /api/places/{id}/menus.
func (a *API) HandleMenus(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r.URL.Query(), pagination.DefaultLimit)

	page, err := a.Listing.MenusByPlace(r.Context(), r.PathValue("id"), params)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}
