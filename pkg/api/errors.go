package api

import (
	"errors"
	"net/http"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/httputil"
)

// Public error messages
const (
	msgCreateRequired  = "Required fields: name and category."
	msgUpdateRequired  = "Required fields: name, category, and id."
	msgNotFound        = "Component not found."
	msgNoFields        = "No valid fields provided to update."
	msgNotAnImage      = "Only image files are allowed."
	msgImageTooLarge   = "Image size exceeds 5MB."
	msgNoImage         = "No image file provided."
	msgStorageDisabled = "Image storage is not configured."
	msgInvalidRequest  = "Invalid request body."
	msgRequestTooLarge = "Request body too large."
)

// writeServiceError maps catalog errors to responses. Anything unexpected
// is logged and answered with a generic 500. requiredMsg is the 400 text
// for ErrInvalidInput, which differs per route.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, requiredMsg string) {
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		httputil.WriteBadRequest(w, requiredMsg)
	case errors.Is(err, catalog.ErrNotFound):
		httputil.WriteNotFoundError(w, msgNotFound)
	case errors.Is(err, catalog.ErrNoFieldsToUpdate):
		httputil.WriteBadRequest(w, msgNoFields)
	case errors.Is(err, catalog.ErrNotAnImage):
		httputil.WriteBadRequest(w, msgNotAnImage)
	case errors.Is(err, catalog.ErrImageTooLarge):
		httputil.WriteBadRequest(w, msgImageTooLarge)
	case errors.Is(err, catalog.ErrImageStorageDisabled):
		httputil.WriteServiceUnavailable(w, msgStorageDisabled)
	default:
		s.requestLogger(r).WithError(err).WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		httputil.WriteInternalError(w)
	}
}

// writeDecodeError answers a body that could not be parsed
func writeDecodeError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		httputil.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, msgRequestTooLarge)
		return
	}
	httputil.WriteBadRequest(w, msgInvalidRequest)
}
