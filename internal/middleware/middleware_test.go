package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/internal/service"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
	"github.com/noah-isme/examprep-api/pkg/logger"
)

type stubResolver struct {
	users map[string]*models.User
}

func (s stubResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
}

func newResolver() stubResolver {
	return stubResolver{users: map[string]*models.User{
		"student-token": {ID: "u-student", Role: models.RoleStudent, Status: models.StatusActive},
		"admin-token":   {ID: "u-admin", Role: models.RoleAdmin, Status: models.StatusActive},
		"banned-token":  {ID: "u-banned", Role: models.RoleAdmin, Status: models.StatusSuspended},
	}}
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthResolvesUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newResolver()))
	router.GET("/me", func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			t.Fatalf("expected user on context")
		}
		if c.GetString(logger.ContextUserIDKey) != user.ID {
			t.Fatalf("expected user id for request logging")
		}
		c.String(http.StatusOK, user.ID)
	})

	rec := serve(router, http.MethodGet, "/me", "student-token")
	if rec.Code != http.StatusOK || rec.Body.String() != "u-student" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRejectsUniformly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newResolver()))
	router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	var bodies []string
	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Fatalf("header %q: missing WWW-Authenticate", header)
		}
		bodies = append(bodies, rec.Body.String())
	}
	for _, body := range bodies[1:] {
		if body != bodies[0] {
			t.Fatalf("expected identical bodies, got %s and %s", bodies[0], body)
		}
	}
}

func TestRequireCapability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newResolver()))
	router.GET("/admin/exams", Require(models.CapExamsManage), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := map[string]int{
		"student-token": http.StatusForbidden,
		"admin-token":   http.StatusOK,
		"banned-token":  http.StatusForbidden,
	}
	for token, want := range cases {
		if rec := serve(router, http.MethodGet, "/admin/exams", token); rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", token, want, rec.Code)
		}
	}
}

func TestRequireWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", Require(models.CapAuditRead), func(c *gin.Context) { c.Status(http.StatusOK) })

	if rec := serve(router, http.MethodGet, "/admin", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

type recordingObserver struct {
	method, path string
	status       int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.method, r.path, r.status = method, path, status
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/exams/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	serve(router, http.MethodGet, "/exams/123", "")
	if observer.path != "/exams/:id" || observer.status != http.StatusTeapot {
		t.Fatalf("unexpected observation: %+v", observer)
	}

	serve(router, http.MethodGet, "/nowhere", "")
	if observer.path != "unmatched" {
		t.Fatalf("expected unmatched label, got %s", observer.path)
	}
}

func TestSetCacheHitHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/exams", func(c *gin.Context) {
		SetCacheHit(c, c.Query("hit") == "1")
		if _, recorded := CacheHit(c); !recorded {
			t.Fatalf("expected cache flag on context")
		}
		c.Status(http.StatusOK)
	})

	if rec := serve(router, http.MethodGet, "/exams?hit=1", ""); rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected HIT, got %q", rec.Header().Get("X-Cache"))
	}
	if rec := serve(router, http.MethodGet, "/exams", ""); rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected MISS, got %q", rec.Header().Get("X-Cache"))
	}
}

type recordingAudit struct {
	entries []service.AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, entry service.AuditEntry) {
	r.entries = append(r.entries, entry)
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	audit := &recordingAudit{}
	router := gin.New()
	router.Use(Auth(newResolver()))
	router.DELETE("/admin/exams/:id", Audit(audit, models.AuditActionExamDelete, "exams"), func(c *gin.Context) {
		if strings.HasSuffix(c.Param("id"), "missing") {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.POST("/admin/exams", Audit(audit, models.AuditActionExamCreate, "exams"), func(c *gin.Context) {
		SetAuditResource(c, "new-exam")
		c.Status(http.StatusCreated)
	})

	serve(router, http.MethodDelete, "/admin/exams/e1", "admin-token")
	serve(router, http.MethodDelete, "/admin/exams/missing", "admin-token")
	serve(router, http.MethodPost, "/admin/exams", "admin-token")

	if len(audit.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(audit.entries))
	}
	if e := audit.entries[0]; e.ResourceID != "e1" || e.UserID != "u-admin" || e.Action != models.AuditActionExamDelete {
		t.Fatalf("unexpected delete entry: %+v", e)
	}
	if e := audit.entries[1]; e.ResourceID != "new-exam" {
		t.Fatalf("unexpected create entry: %+v", e)
	}
}
