// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/sitetrack/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration. Each field takes one of
// "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only) or "off".
type Config struct {
	// Auth covers login and logout.
	Auth string
	// Admin covers user, project and settings administration.
	Admin string
	// Project covers day-to-day activity on a project's phases.
	Project string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ProjectID != nil {
		fields = append(fields, zap.String("project_id", event.ProjectID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) setting(category string) string {
	switch category {
	case audit.CategoryAuth:
		return l.config.Auth
	case audit.CategoryAdmin:
		return l.config.Admin
	case audit.CategoryProject:
		return l.config.Project
	default:
		return "all"
	}
}

// ValidMode reports whether mode is a recognised per-category setting.
func ValidMode(mode string) bool {
	switch mode {
	case "all", "db", "log", "off":
		return true
	}
	return false
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op, so handlers built without one still work.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.setting(event.Category)
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, mobile string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"mobile": mobile,
		},
	})
}

// LoginFailedUserNotFound logs a login attempt for an unregistered mobile.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedMobile string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "user not found",
		Details: map[string]string{
			"attempted_mobile": attemptedMobile,
		},
	})
}

// Logout logs a user logout. userIDStr may be empty when the session was
// already gone.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		event.UserID = &oid
	}
	l.Log(ctx, event)
}

// --- Admin Events ---

// UserCreated logs the creation of a user account.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"role": role,
		},
	})
}

// UserUpdated logs a change to a user account.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserUpdated,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"fields_changed": fieldsChanged,
		},
	})
}

// UserDeleted logs the removal of a user account.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserDeleted,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"role": role,
		},
	})
}

// ProjectCreated logs the creation of a project.
func (l *Logger) ProjectCreated(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, name string, phases int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProjectCreated,
		ActorID:   &actorID,
		ProjectID: &projectID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"name":   name,
			"phases": strconv.Itoa(phases),
		},
	})
}

// ProjectUpdated logs an admin edit of a project.
func (l *Logger) ProjectUpdated(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProjectUpdated,
		ActorID:   &actorID,
		ProjectID: &projectID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"fields_changed": fieldsChanged,
		},
	})
}

// SettingsUpdated logs a change to the site settings.
func (l *Logger) SettingsUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, appName string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventSettingsUpdated,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"app_name": appName,
		},
	})
}

// --- Project Activity Events ---

func (l *Logger) phaseEvent(ctx context.Context, r *http.Request, eventType string, actorID, projectID primitive.ObjectID, actorRole, phase string, details map[string]string) {
	d := map[string]string{
		"actor_role": actorRole,
		"phase":      phase,
	}
	for k, v := range details {
		d[k] = v
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryProject,
		EventType: eventType,
		ActorID:   &actorID,
		ProjectID: &projectID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   d,
	})
}

// UpdatePosted logs a progress update appended to a phase.
func (l *Logger) UpdatePosted(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, actorRole, phase, updateID string) {
	l.phaseEvent(ctx, r, audit.EventUpdatePosted, actorID, projectID, actorRole, phase, map[string]string{
		"update_id": updateID,
	})
}

// UpdateDeleted logs the removal of a progress update.
func (l *Logger) UpdateDeleted(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, actorRole, phase, updateID string) {
	l.phaseEvent(ctx, r, audit.EventUpdateDeleted, actorID, projectID, actorRole, phase, map[string]string{
		"update_id": updateID,
	})
}

// MaterialsReplaced logs a replacement of a phase's materials list.
func (l *Logger) MaterialsReplaced(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, actorRole, phase string, count int) {
	l.phaseEvent(ctx, r, audit.EventMaterialsReplaced, actorID, projectID, actorRole, phase, map[string]string{
		"count": strconv.Itoa(count),
	})
}

// PhaseStatusChanged logs a phase moving to a new status.
func (l *Logger) PhaseStatusChanged(ctx context.Context, r *http.Request, actorID, projectID primitive.ObjectID, actorRole, phase, status string) {
	l.phaseEvent(ctx, r, audit.EventPhaseStatusChanged, actorID, projectID, actorRole, phase, map[string]string{
		"status": status,
	})
}
