package activity

import (
	"net/http"
	"time"

	"github.com/platinummonkey/stockroom/pkg/httputil"
)

// Action labels
const (
	ActionUserRegister          = "USER_REGISTER"
	ActionUserLogin             = "USER_LOGIN"
	ActionUpdateUser            = "UPDATE_USER"
	ActionProductCreate         = "PRODUCT_CREATE"
	ActionProductUpdateQuantity = "PRODUCT_UPDATE_QUANTITY"
	ActionReportExport          = "REPORT_EXPORT"
)

// Entry is one activity log row
type Entry struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"`
	Username  *string   `json:"username"`
	Action    string    `json:"action"`
	Details   *string   `json:"details"`
	IPAddress *string   `json:"ip_address"`
	UserAgent *string   `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

// RequestInfo identifies the requester of an action
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// FromRequest extracts the client IP and user agent from r
func FromRequest(r *http.Request) RequestInfo {
	return RequestInfo{
		IPAddress: httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
