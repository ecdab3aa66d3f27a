// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/store/audit"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList handles GET /api/admin/audit.
//
// Query parameters: category, event_type, user_id, project_id,
// start_date and end_date (YYYY-MM-DD, inclusive) and page (1-based).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	eventType := strings.TrimSpace(q.Get("event_type"))

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	details := map[string]string{}
	if category != "" {
		if _, ok := categories[category]; !ok {
			details["category"] = "unknown category"
		}
	}
	if eventType != "" && details["category"] == "" && !validEventType(category, eventType) {
		details["event_type"] = "unknown event type for category"
	}
	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			filter.UserID = &id
		} else {
			details["user_id"] = "must be a valid id"
		}
	}
	if raw := strings.TrimSpace(q.Get("project_id")); raw != "" {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			filter.ProjectID = &id
		} else {
			details["project_id"] = "must be a valid id"
		}
	}
	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.StartTime = &t
		} else {
			details["start_date"] = "must be YYYY-MM-DD"
		}
	}
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			// End of day
			endOfDay := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndTime = &endOfDay
		} else {
			details["end_date"] = "must be YYYY-MM-DD"
		}
	}
	if len(details) > 0 {
		jsonutil.Error(w, h.Log, apperr.ValidationDetails("invalid audit filter", details))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Internal("query audit events", err))
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Internal("count audit events", err))
		return
	}

	names := h.userNames(r, events)

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.Hex()
			item.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			item.UserID = e.UserID.Hex()
			item.TargetName = names[*e.UserID]
		}
		if e.ProjectID != nil {
			item.ProjectID = e.ProjectID.Hex()
		}
		items = append(items, item)
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages == 0 {
		totalPages = 1
	}

	jsonutil.OK(w, listData{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	})
}

// userNames batch-resolves the actor and target ids on events. Lookup
// failures leave names blank rather than failing the listing.
func (h *Handler) userNames(r *http.Request, events []audit.Event) map[primitive.ObjectID]string {
	seen := make(map[primitive.ObjectID]struct{})
	for _, e := range events {
		if e.ActorID != nil {
			seen[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			seen[*e.UserID] = struct{}{}
		}
	}
	names := make(map[primitive.ObjectID]string, len(seen))
	if len(seen) == 0 {
		return names
	}

	ids := make([]primitive.ObjectID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "audit log names")
	defer cancel()

	users, err := h.Users.ListByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		return names
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names
}
