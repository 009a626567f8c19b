package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
)

func TestRespondErrorMapsCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{domainagg.Validation("x", "bad weight"), http.StatusBadRequest, "validation", "bad weight"},
		{domainagg.NotFound("x", "no lesson"), http.StatusNotFound, "not_found", "no lesson"},
		{domainagg.Forbidden("x", "nope"), http.StatusForbidden, "forbidden", "nope"},
		{fmt.Errorf("wrapped: %w", domainagg.Conflict("x", "session has ended")), http.StatusConflict, "conflict", "session has ended"},
		{domainagg.NewError(domainagg.CodeInvariantViolation, "x", "paused without reason", nil), http.StatusConflict, "invariant_violation", "paused without reason"},
		{domainagg.NewError(domainagg.CodePreconditionFailed, "x", "block locked", nil), http.StatusPreconditionFailed, "precondition_failed", "block locked"},
		{domainagg.NewError(domainagg.CodeRetryable, "x", "try again", nil), http.StatusServiceUnavailable, "retryable", "try again"},
		{errors.New("pq: password authentication failed"), http.StatusInternalServerError, "internal", "internal error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondError(c, tc.err)

		if rec.Code != tc.status {
			t.Fatalf("%v: status want %d got %d", tc.err, tc.status, rec.Code)
		}
		var env Envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Success || env.Code != tc.code || env.Message != tc.message {
			t.Fatalf("%v: unexpected envelope %+v", tc.err, env)
		}
	}
}

func TestRespondOKOmitsCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondOK(c, "ok", map[string]int{"n": 1})

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["success"] != true || raw["message"] != "ok" {
		t.Fatalf("unexpected body: %v", raw)
	}
	if _, ok := raw["code"]; ok {
		t.Fatalf("code should be omitted on success")
	}
}
