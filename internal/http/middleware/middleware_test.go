package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/platform/ctxutil"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type stubAuth struct {
	userID uuid.UUID
	err    error
}

func (s stubAuth) ParseToken(tokenString string) (uuid.UUID, error) { return s.userID, s.err }

func (s stubAuth) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if s.err != nil {
		return ctx, s.err
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tokenString, UserID: s.userID}), nil
}

func authRouter(auth stubAuth) *gin.Engine {
	r := gin.New()
	mw := NewAuthMiddleware(logger.NewNop(), auth)
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.UserID(c.Request.Context()).String())
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	cases := []struct {
		name   string
		auth   stubAuth
		target string
		header string
		status int
	}{
		{"no token", stubAuth{userID: userID}, "/me", "", http.StatusUnauthorized},
		{"bearer", stubAuth{userID: userID}, "/me", "Bearer abc", http.StatusOK},
		{"lowercase bearer", stubAuth{userID: userID}, "/me", "bearer abc", http.StatusOK},
		{"query token", stubAuth{userID: userID}, "/me?token=abc", "", http.StatusOK},
		{"rejected", stubAuth{err: errors.New("expired")}, "/me", "Bearer abc", http.StatusUnauthorized},
		{"nil user", stubAuth{}, "/me", "Bearer abc", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.target, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		authRouter(tc.auth).ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: want %d got %d (%s)", tc.name, tc.status, rec.Code, rec.Body.String())
		}
		if tc.status == http.StatusOK && rec.Body.String() != userID.String() {
			t.Fatalf("%s: user id not in context: %s", tc.name, rec.Body.String())
		}
		if tc.status != http.StatusOK && !strings.Contains(rec.Body.String(), `"success":false`) {
			t.Fatalf("%s: error envelope missing: %s", tc.name, rec.Body.String())
		}
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-1" || seen.TraceID == "" {
		t.Fatalf("trace data: %+v", seen)
	}
	if rec.Header().Get("X-Request-Id") != "req-1" || rec.Header().Get("X-Trace-Id") != seen.TraceID {
		t.Fatalf("response headers not echoed: %v", rec.Header())
	}
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	r := gin.New()
	r.Use(Metrics(m), RequestLogger(logger.NewNop()))
	r.GET("/api/live-sessions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/live-sessions/123", nil))

	var sb strings.Builder
	if err := m.WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if !strings.Contains(sb.String(), `route="/api/live-sessions/:id"`) {
		t.Fatalf("route label missing:\n%s", sb.String())
	}
}

func TestAttachTraceContextReplacesUnsafeIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, bad := range []string{"has space", strings.Repeat("a", maxIDLen+1), "tab\tid"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Request-Id", bad)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		got := rec.Header().Get("X-Request-Id")
		if got == bad || got == "" {
			t.Fatalf("unsafe request id %q was not replaced: %q", bad, got)
		}
	}
}

func TestMetricsMiddlewareSkipsStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	r := gin.New()
	r.Use(Metrics(m, "/api/sse/stream"))
	r.GET("/api/sse/stream", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sse/stream", nil))

	var sb strings.Builder
	if err := m.WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if strings.Contains(sb.String(), `route="/api/sse/stream"`) {
		t.Fatalf("stream route should not be observed:\n%s", sb.String())
	}
}
