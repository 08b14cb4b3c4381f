package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

func discardLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestHandleServiceError(t *testing.T) {
	h := NewBaseHandler(discardLogger())

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation errors are 422", services.ValidationErrors{{Field: "answers[0].optionId", Rule: "required"}}, http.StatusUnprocessableEntity},
		{"permission errors are 403", services.NewPermissionError("u1", uint(1), "quiz", "start", "only students can take quizzes"), http.StatusForbidden},
		{"business rule errors are 400", services.NewBusinessRuleError("class_roster", "user is not a student"), http.StatusBadRequest},
		{"missing quiz is 404", services.ErrQuizNotFound, http.StatusNotFound},
		{"unassigned quiz is 404, same as missing", services.ErrQuizNotAssigned, http.StatusNotFound},
		{"closed window is 400", services.ErrQuizNotAvailable, http.StatusBadRequest},
		{"double submit is 400", services.ErrSubmissionAlreadySubmitted, http.StatusBadRequest},
		{"submit without start is 404", services.ErrSubmissionNotStarted, http.StatusNotFound},
		{"delete with submissions is 409", services.ErrQuizHasSubmissions, http.StatusConflict},
		{"missing class is 404", services.ErrClassNotFound, http.StatusNotFound},
		{"unknown errors are 500", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := testContext(t)
			h.handleServiceError(c, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	t.Run("unassigned and missing quizzes are indistinguishable", func(t *testing.T) {
		c1, rec1 := testContext(t)
		h.handleServiceError(c1, services.ErrQuizNotFound)

		c2, rec2 := testContext(t)
		h.handleServiceError(c2, services.ErrQuizNotAssigned)

		if rec1.Body.String() != rec2.Body.String() {
			t.Errorf("response bodies differ: %q vs %q", rec1.Body.String(), rec2.Body.String())
		}
	})
}

func TestParseIDParam(t *testing.T) {
	h := NewBaseHandler(discardLogger())

	t.Run("valid id", func(t *testing.T) {
		c, _ := testContext(t)
		c.Params = gin.Params{{Key: "id", Value: "42"}}
		if got := h.parseIDParam(c, "id"); got != 42 {
			t.Errorf("parseIDParam = %d, want 42", got)
		}
	})

	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "abc"},
		{"zero", "0"},
		{"negative", "-1"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := testContext(t)
			c.Params = gin.Params{{Key: "id", Value: tt.value}}
			if got := h.parseIDParam(c, "id"); got != 0 {
				t.Errorf("parseIDParam = %d, want 0", got)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestCurrentUserID(t *testing.T) {
	h := NewBaseHandler(discardLogger())

	t.Run("authenticated", func(t *testing.T) {
		c, _ := testContext(t)
		c.Set("user_id", "student-1")
		got, ok := h.currentUserID(c)
		if !ok || got != "student-1" {
			t.Errorf("currentUserID = (%q, %v), want (student-1, true)", got, ok)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		c, rec := testContext(t)
		if _, ok := h.currentUserID(c); ok {
			t.Error("currentUserID should fail without user_id in context")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
