// Package handlers adapts HTTP requests to the listing, search, upload, and
// auth operations. Handlers parse the query string and identity, call one
// operation, and map its error class onto a status code.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"placefinder/src/common"
	"placefinder/src/listing"
	"placefinder/src/staticmap"
	"placefinder/src/token"
	"placefinder/src/types"
	"placefinder/src/uploads"
)

const maxJSONBody = 1 << 20

// Identifier resolves the caller of a request, or nil for anonymous.
type Identifier interface {
	Identify(r *http.Request) *types.Identity
}

// API holds the dependencies shared by every handler.
type API struct {
	Listing   *listing.Service
	Identity  Identifier
	Tokens    *token.Issuer
	StaticMap *staticmap.Client
	Uploads   *uploads.Service
	Logger    arbor.ILogger
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// writeFailure maps err onto its status. Server-side failures are logged.
func (a *API) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := common.StatusCode(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	}
	WriteError(w, status, err.Error())
}

func (a *API) identify(r *http.Request) *types.Identity {
	if a.Identity == nil {
		return nil
	}
	return a.Identity.Identify(r)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(v); err != nil {
		return common.ClientInput("invalid request payload: %v", err)
	}
	return nil
}

// intParam reads an integer query parameter; missing or malformed values take fallback.
func intParam(r *http.Request, name string, fallback int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
