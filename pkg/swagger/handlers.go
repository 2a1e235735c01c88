// Package swagger serves the embedded OpenAPI document and a Swagger UI.
package swagger

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"gopkg.in/yaml.v3"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/httputil"
)

//go:embed openapi.yaml
var openapiSpec []byte

// SwaggerHandlers provides HTTP handlers for OpenAPI/Swagger documentation
type SwaggerHandlers struct {
	once     sync.Once
	document map[string]interface{}
	err      error
}

// NewSwaggerHandlers creates a new SwaggerHandlers instance
func NewSwaggerHandlers() *SwaggerHandlers {
	return &SwaggerHandlers{}
}

// RegisterRoutes registers the swagger routes with the router
func (h *SwaggerHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/openapi.yaml", h.serveOpenAPISpec).Methods("GET")
	router.HandleFunc("/openapi.json", h.serveOpenAPISpecJSON).Methods("GET")
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/openapi.json"),
		httpSwagger.DeepLinking(true),
	)).Methods("GET")
	router.Handle("/api-docs", http.RedirectHandler("/swagger/index.html", http.StatusMovedPermanently)).Methods("GET")
}

// Document returns the OpenAPI document decoded from YAML
func (h *SwaggerHandlers) Document() (map[string]interface{}, error) {
	h.once.Do(func() {
		var doc map[string]interface{}
		if err := yaml.Unmarshal(openapiSpec, &doc); err != nil {
			h.err = fmt.Errorf("failed to parse openapi.yaml: %w", err)
			return
		}
		h.document = doc
	})
	return h.document, h.err
}

// serveOpenAPISpec serves the OpenAPI specification in YAML format
func (h *SwaggerHandlers) serveOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(openapiSpec)
}

// serveOpenAPISpecJSON serves the OpenAPI specification in JSON format
func (h *SwaggerHandlers) serveOpenAPISpecJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Document()
	if err != nil {
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}
