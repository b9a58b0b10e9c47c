package handlers

import (
	"net/http"

	"placefinder/src/common"
)

const maxUploadBytes = 20 << 20

// HandleUpload handles POST /api/uploads with a multipart "file" field.
func (a *API) HandleUpload(w http.ResponseWriter, r *http.Request) {
	identity := a.identify(r)
	if identity == nil {
		a.writeFailure(w, r, common.AuthRequired())
		return
	}
	if a.Uploads == nil {
		a.writeFailure(w, r, common.Configuration("image uploads are not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		a.writeFailure(w, r, common.ClientInput("multipart field \"file\" is required: %v", err))
		return
	}
	defer file.Close()

	result, err := a.Uploads.Upload(r.Context(), identity, file)
	if err != nil {
		a.writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}
