// Package activity records an append-only log of user actions.
//
// Entries carry the acting user (nullable for system actions), an action
// label, free-text details, and the requester IP and user agent. Entries are
// never updated or deleted.
//
// Handlers record through Logger.Record, which logs and swallows storage
// failures so that a failed audit write never fails the request:
//
//	activityLog.Record(r.Context(), activity.FromRequest(r), &userID,
//		activity.ActionProductCreate, fmt.Sprintf("Created product %s", sku))
//
// Admins read the log through List (paginated, newest first, joined with the
// acting username) and Recent.
package activity
