package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/novamark/agencydesk-backend/internal/pkg/ctxutil"
)

func traceRouter(tb testing.TB, capture **ctxutil.TraceData) *gin.Engine {
	tb.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AttachTraceContext())
	router.GET("/ping", func(c *gin.Context) {
		*capture = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAttachTraceContextMintsIdentifiers(t *testing.T) {
	var td *ctxutil.TraceData
	router := traceRouter(t, &td)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(rec, req)

	if td == nil {
		t.Fatal("trace data missing from request context")
	}
	if td.TraceID == "" || td.RequestID == "" {
		t.Fatalf("expected minted identifiers, got %+v", td)
	}
	if got := rec.Header().Get("X-Trace-Id"); got != td.TraceID {
		t.Fatalf("X-Trace-Id header = %q, want %q", got, td.TraceID)
	}
	if got := rec.Header().Get("X-Request-Id"); got != td.RequestID {
		t.Fatalf("X-Request-Id header = %q, want %q", got, td.RequestID)
	}
}

func TestAttachTraceContextHonorsInboundHeaders(t *testing.T) {
	var td *ctxutil.TraceData
	router := traceRouter(t, &td)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-Id", "trace-from-gateway")
	req.Header.Set("X-Request-Id", "req-42")
	router.ServeHTTP(rec, req)

	if td == nil {
		t.Fatal("trace data missing from request context")
	}
	if td.TraceID != "trace-from-gateway" || td.RequestID != "req-42" {
		t.Fatalf("inbound identifiers not preserved, got %+v", td)
	}
	if got := rec.Header().Get("X-Trace-Id"); got != "trace-from-gateway" {
		t.Fatalf("X-Trace-Id header = %q", got)
	}
}
