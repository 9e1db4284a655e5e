// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, product)
//	httputil.WriteCreated(w, map[string]interface{}{"product_id": id})
//
// Error bodies always have the shape {"message": ..., "error": CODE}:
//
//	httputil.WriteBadRequest(w, "Quantity must be a non-negative integer")
//	httputil.WriteErrorCode(w, http.StatusUnauthorized, apperr.CodeMissingToken, "Access token required")
//
// Errors produced by stores and services are rendered from their apperr.Kind:
//
//	if err != nil {
//		httputil.WriteAppError(w, err, devMode)
//		return
//	}
//
// Internal errors are replaced by a generic message unless devMode is set.
//
// # Request Parsing
//
//	var req RegisterRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // 400 already written
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(10<<20),
//	)(router)
package httputil
