// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/sitetrack/internal/app/store/audit"
)

// listItem is one audit event as returned to the admin client. Names are
// resolved from ActorID and UserID when the user still exists.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"eventType"`
	ActorID       string            `json:"actorId,omitempty"`
	ActorName     string            `json:"actorName,omitempty"`
	UserID        string            `json:"userId,omitempty"`
	TargetName    string            `json:"targetName,omitempty"`
	ProjectID     string            `json:"projectId,omitempty"`
	IP            string            `json:"ip"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failureReason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// listData is the response body for GET /api/admin/audit.
type listData struct {
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
	Total      int64      `json:"total"`
	HasPrev    bool       `json:"hasPrev"`
	HasNext    bool       `json:"hasNext"`
}

var categories = map[string][]string{
	audit.CategoryAuth: {
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLogout,
	},
	audit.CategoryAdmin: {
		audit.EventUserCreated,
		audit.EventUserUpdated,
		audit.EventUserDeleted,
		audit.EventProjectCreated,
		audit.EventProjectUpdated,
		audit.EventSettingsUpdated,
	},
	audit.CategoryProject: {
		audit.EventUpdatePosted,
		audit.EventUpdateDeleted,
		audit.EventMaterialsReplaced,
		audit.EventPhaseStatusChanged,
	},
}

// validEventType reports whether eventType belongs to category, or to any
// category when category is empty.
func validEventType(category, eventType string) bool {
	for c, types := range categories {
		if category != "" && c != category {
			continue
		}
		for _, t := range types {
			if t == eventType {
				return true
			}
		}
	}
	return false
}
