// Package api provides the HTTP REST API of the inventory service.
//
// # Overview
//
// Server wires gorilla/mux routes for four handler groups, each registering
// its own routes:
//
//   - AuthHandlers: POST /auth/register, POST /auth/login
//   - ProductHandlers: GET|POST /products, GET /products/{id},
//     PUT /products/{id}/quantity
//   - AdminHandlers: GET /admin/dashboard|users|analytics|logs,
//     PUT /admin/users/{id}
//   - AnalyticsHandlers: GET /analytics/products|inventory|users|reports
//
// GET /health is a liveness probe without authentication.
//
// # Middleware
//
// Every request passes recovery, request id, logging, CORS and body size
// limiting. Product, admin and analytics routes additionally require a bearer
// token; admin routes require the stored admin role and analytics routes
// return elevated detail to admins. Auth routes are rate limited per client
// IP and authenticated routes per user.
//
// # Errors
//
// Errors render as {"message": ..., "error": CODE}. Unknown paths return 404
// with a directory of available endpoints and known paths with the wrong
// method return 405.
//
// # Usage
//
//	srv := api.NewServer(api.Dependencies{
//		Accounts:  accounts,
//		Tokens:    tokens,
//		Products:  products,
//		Activity:  activityLog,
//		Events:    events,
//		Analytics: analyticsService,
//		Reports:   generator,
//	})
//	http.ListenAndServe(":5000", srv)
package api
