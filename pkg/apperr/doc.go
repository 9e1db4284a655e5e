// Package apperr defines the error taxonomy shared by every layer of the
// inventory service.
//
// Stores and services return *Error values carrying a Kind and a stable
// machine-readable Code. The HTTP layer (pkg/httputil) maps the Kind to a
// status code and renders the Code so clients can branch on it:
//
//	if _, err := store.Get(ctx, id); err != nil {
//		if apperr.KindOf(err) == apperr.KindNotFound {
//			...
//		}
//	}
//
// Any error that is not an *Error is treated as KindInternal.
package apperr
