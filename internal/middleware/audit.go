package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/service"
)

// AuditResourceKey lets a handler name the affected record when the route has no :id.
const AuditResourceKey = "audit_resource_id"

type auditRecorder interface {
	Record(ctx context.Context, entry service.AuditEntry)
}

// SetAuditResource records the id of a record created by the current request.
func SetAuditResource(c *gin.Context, id string) {
	c.Set(AuditResourceKey, id)
}

// Audit records an activity log entry after a successful mutation.
func Audit(recorder auditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}

		entry := service.AuditEntry{
			Action:     action,
			Resource:   resource,
			ResourceID: c.GetString(AuditResourceKey),
			IP:         c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
			Details: map[string]interface{}{
				"path":       c.FullPath(),
				"method":     c.Request.Method,
				"status":     c.Writer.Status(),
				"latency_ms": time.Since(start).Milliseconds(),
			},
		}
		if entry.ResourceID == "" {
			entry.ResourceID = c.Param("id")
		}
		if user, ok := CurrentUser(c); ok {
			entry.UserID = user.ID
		}
		// the request context may already be cancelled once the response is written
		recorder.Record(context.WithoutCancel(c.Request.Context()), entry)
	}
}
