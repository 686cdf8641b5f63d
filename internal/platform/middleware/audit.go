package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/emr/chart/internal/platform/auth"
)

// AuditEntry captures who accessed which patient's chart data, when, and how.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	PatientID  string
	Action     string // read, create, update, delete
	Path       string
	Method     string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries. Tests provide a mock; production
// wiring falls back to structured zerolog output when none is given.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every access to chart data under /api/* and /fhir/* so PHI
// reads are traceable per HIPAA requirements.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, "/api") && !strings.HasPrefix(path, "/fhir") {
				return next(c)
			}

			err := next(c)

			rid, _ := c.Get("request_id").(string)
			ctx := req.Context()
			entry := AuditEntry{
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				PatientID:  patientIDFrom(c),
				Action:     actionFor(req.Method),
				Path:       path,
				Method:     req.Method,
				RequestID:  rid,
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}

			recorded := false
			for _, r := range recorders {
				if r == nil {
					continue
				}
				if rerr := r.RecordAccess(entry); rerr != nil {
					logger.Error().Err(rerr).Str("request_id", rid).Msg("audit record failed")
				}
				recorded = true
			}
			if !recorded {
				logger.Info().
					Str("request_id", entry.RequestID).
					Str("user_id", entry.UserID).
					Strs("roles", entry.UserRoles).
					Str("patient_id", entry.PatientID).
					Str("action", entry.Action).
					Str("path", entry.Path).
					Int("status", entry.StatusCode).
					Msg("phi access")
			}

			return err
		}
	}
}

func patientIDFrom(c echo.Context) string {
	if pid := c.Param("patient_id"); pid != "" {
		return pid
	}
	if pid := c.QueryParam("patient"); pid != "" {
		return pid
	}
	return c.QueryParam("patient_id")
}

func actionFor(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return "read"
	}
}
