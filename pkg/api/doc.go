// Package api provides the HTTP REST API of the component catalog.
//
// # Overview
//
// The API is built on gorilla/mux and delegates every operation to a
// CatalogService (normally *catalog.Service). Handlers accept JSON or
// multipart/form-data bodies; multipart requests may carry an "image" file.
//
// # Routes
//
//	GET    /handshake
//	GET    /allcomponents                         component names
//	GET    /count                                 {"count": n}
//	GET    /components                            components grouped by category
//	POST   /uploads/images                        standalone image upload
//	POST   /categories/{category}/components      create
//	PUT    /categories/{category}/components/{id} replace
//	PUT    /components/resources/{id}             partial status/link update
//	DELETE /components/{id}                       delete with image
//
// # Errors
//
// Every error body is {"error": "..."}. Catalog sentinel errors map to 400,
// 404 or 503; anything else is logged with the request ID and answered with
// a fixed 500 message.
//
// # Usage
//
//	server := api.NewServer(service, api.Options{Logger: logger, Metrics: metrics})
//	server.RegisterRoutes(swagger.NewSwaggerHandlers())
//	http.ListenAndServe(":8080", server.Handler())
package api
