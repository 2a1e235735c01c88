package api

import (
	"net/http"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/httputil"
)

// CountResponse is the body of GET /count
type CountResponse struct {
	Count int64 `json:"count"`
}

// CreatedResponse is the body of a successful component creation
type CreatedResponse struct {
	Message     string  `json:"message"`
	ComponentID int64   `json:"componentId"`
	Image       *string `json:"image,omitempty"`
}

// UploadResponse is the body of a successful image upload
type UploadResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// ResourcesResponse is the body of a successful resource update
type ResourcesResponse struct {
	Message string                 `json:"message"`
	Updated catalog.ResourceUpdate `json:"updated"`
}

// handshake handles GET /handshake
func (s *Server) handshake(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, "👍")
}

// listComponentNames handles GET /allcomponents
func (s *Server) listComponentNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ComponentNames(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	httputil.WriteSuccess(w, names)
}

// countComponents handles GET /count
func (s *Server) countComponents(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.ComponentCount(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	httputil.WriteSuccess(w, CountResponse{Count: count})
}

// listComponents handles GET /components
func (s *Server) listComponents(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.FormattedComponents(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	httputil.WriteSuccess(w, groups)
}

// uploadImage handles POST /uploads/images
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	img, name, err := decodeImageUpload(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	if img == nil {
		httputil.WriteBadRequest(w, msgNoImage)
		return
	}

	url, err := s.service.UploadImage(r.Context(), img, name)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	httputil.WriteCreated(w, UploadResponse{
		Message: "Image uploaded successfully.",
		URL:     url,
	})
}

// createComponent handles POST /categories/{category}/components
func (s *Server) createComponent(w http.ResponseWriter, r *http.Request) {
	in, img, err := decodeComponent(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	id, imageURL, err := s.service.CreateComponent(r.Context(), in, img)
	if err != nil {
		s.writeServiceError(w, r, err, msgCreateRequired)
		return
	}

	httputil.WriteCreated(w, CreatedResponse{
		Message:     "Component created successfully.",
		ComponentID: id,
		Image:       imageURL,
	})
}

// updateComponent handles PUT /categories/{category}/components/{id}
func (s *Server) updateComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	in, img, err := decodeComponent(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := s.service.ModifyComponent(r.Context(), id, in, img); err != nil {
		s.writeServiceError(w, r, err, msgUpdateRequired)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Component, statuses, and platform links updated successfully.")
}

// updateResources handles PUT /components/resources/{id}
func (s *Server) updateResources(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var patch catalog.ResourcePatch
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(r, &patch); err != nil {
			writeDecodeError(w, err)
			return
		}
	}

	updated, err := s.service.UpdateResources(r.Context(), id, &patch)
	if err != nil {
		s.writeServiceError(w, r, err, msgNoFields)
		return
	}

	httputil.WriteSuccess(w, ResourcesResponse{
		Message: "Component resources updated successfully.",
		Updated: updated,
	})
}

// deleteComponent handles DELETE /components/{id}
func (s *Server) deleteComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.service.RemoveComponent(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Component, related records, and image erased successfully.")
}
