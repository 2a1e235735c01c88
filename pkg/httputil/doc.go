// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// path and multipart parsing, and the middleware every catalog route runs behind.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteMessage(w, http.StatusOK, "Component updated successfully")
//	httputil.WriteCreated(w, resource)
//
// Error responses share one shape, {"error": "..."}:
//
//	httputil.WriteBadRequest(w, "Required fields: name and category.")
//	httputil.WriteNotFoundError(w, "Component not found")
//	httputil.WriteInternalError(w) // fixed message, cause is logged by the caller
//
// # Request Parsing
//
//	var patch catalog.ResourcePatch
//	if err := httputil.ParseJSON(r, &patch); err != nil {
//		httputil.WriteBadRequest(w, "Invalid request body.")
//		return
//	}
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
//	fields, file, err := httputil.ParseMultipart(r, "image", catalog.MaxImageSize)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.CORSMiddleware([]string{"*"}),
//		httputil.TimeoutMiddleware(30*time.Second),
//		httputil.MaxBytesMiddleware(10<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: rate limiting
package httputil
