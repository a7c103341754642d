package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"yamdb/internal/service"

	"github.com/gin-gonic/gin"
)

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var response APIError
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return response
}

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		write          func(c *gin.Context)
		expectedStatus int
		expectedCode   string
	}{
		{"BadRequest", func(c *gin.Context) { BadRequest(c, ErrCodeInvalidRequest, "bad") }, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"Unauthorized", func(c *gin.Context) { Unauthorized(c, "login") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"Forbidden", func(c *gin.Context) { Forbidden(c, "no") }, http.StatusForbidden, ErrCodeForbidden},
		{"NotFound", func(c *gin.Context) { NotFound(c, ErrCodeTitleNotFound, "gone") }, http.StatusNotFound, ErrCodeTitleNotFound},
		{"InternalError", func(c *gin.Context) { InternalError(c, "boom") }, http.StatusInternalServerError, ErrCodeInternalError},
		{"ServiceUnavailable", func(c *gin.Context) { ServiceUnavailable(c, "down") }, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"MissingField", func(c *gin.Context) { MissingField(c, "email") }, http.StatusBadRequest, ErrCodeMissingField},
		{"InvalidPayload", InvalidPayload, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"MethodNotAllowed", MethodNotAllowed, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
		{"RouteNotFound", RouteNotFound, http.StatusNotFound, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			tt.write(c)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !c.IsAborted() {
				t.Error("expected context to be aborted")
			}
			if response := decodeAPIError(t, w); response.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, response.Code)
			}
		})
	}
}

func TestValidationFailedCarriesField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ValidationFailed(c, "slug", "bad slug")

	response := decodeAPIError(t, w)
	if response.Code != ErrCodeValidation {
		t.Fatalf("expected code %s, got %s", ErrCodeValidation, response.Code)
	}
	details, ok := response.Details.(map[string]any)
	if !ok || details["field"] != "slug" {
		t.Fatalf("expected details.field=slug, got %#v", response.Details)
	}
}

func TestBindFailedUsesJSONFieldNames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	useJSONFieldNames()

	type payload struct {
		FirstName string `json:"first_name" binding:"required"`
		Email     string `json:"email" binding:"omitempty,email"`
		Score     int    `json:"score" binding:"omitempty,max=10"`
	}

	tests := []struct {
		name      string
		body      string
		wantCode  string
		wantField string
	}{
		{"missing", `{}`, ErrCodeMissingField, "first_name"},
		{"bad email", `{"first_name":"a","email":"nope"}`, ErrCodeValidation, "email"},
		{"too big", `{"first_name":"a","score":11}`, ErrCodeValidation, "score"},
		{"malformed json", `{`, ErrCodeInvalidRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var p payload
			err := c.ShouldBindJSON(&p)
			if err == nil {
				t.Fatal("expected bind error")
			}
			bindFailed(c, err)

			response := decodeAPIError(t, w)
			if response.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, response.Code)
			}
			if tt.wantField == "" {
				return
			}
			details, _ := response.Details.(map[string]any)
			if details["field"] != tt.wantField {
				t.Errorf("expected field %s, got %#v", tt.wantField, response.Details)
			}
		})
	}
}

func TestServiceFailed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		handled    bool
		wantStatus int
	}{
		{"validation", service.NewValidationError("email", service.MessageEmailMismatch), true, http.StatusBadRequest},
		{"user not found", service.ErrUserNotFound, true, http.StatusNotFound},
		{"unknown", errors.New("db down"), false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			if got := serviceFailed(c, tt.err); got != tt.handled {
				t.Fatalf("expected handled=%v, got %v", tt.handled, got)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
