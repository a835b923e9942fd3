package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
)

func record(tb testing.TB, fn func(c *gin.Context)) (*httptest.ResponseRecorder, ErrorEnvelope) {
	tb.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		tb.Fatalf("decode envelope: %v", err)
	}
	return rec, env
}

func TestRespondErrMapsTaxonomy(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"not found", apierr.NotFound("conversation c1 not found"), http.StatusNotFound, apierr.CodeNotFound, "conversation c1 not found"},
		{"forbidden", apierr.Forbidden("conversation c1 belongs to another client"), http.StatusForbidden, apierr.CodeForbidden, "conversation c1 belongs to another client"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := record(t, func(c *gin.Context) { RespondErr(c, tc.err) })
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if env.Error.Code != tc.code {
				t.Fatalf("code = %q, want %q", env.Error.Code, tc.code)
			}
			if env.Error.Message != tc.message {
				t.Fatalf("message = %q, want %q", env.Error.Message, tc.message)
			}
		})
	}
}

func TestRespondErrorDefaultsMessageFromCode(t *testing.T) {
	rec, env := record(t, func(c *gin.Context) {
		RespondError(c, http.StatusNotFound, "not_found", nil)
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.Error.Message != "not_found" {
		t.Fatalf("message = %q, want the code", env.Error.Message)
	}
}
