package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	"wte-api-server/internal/auth"
	"wte-api-server/internal/reports"
	"wte-api-server/internal/workflow"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
	})
	return &buf
}

func respond(requestID string, err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/waste", func(c *gin.Context) {
		if requestID != "" {
			c.Set("request_id", requestID)
		}
		RespondError(c, err)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/waste", nil))
	return w
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid transition", workflow.Validate("REPORTED", "COLLECTED"), http.StatusBadRequest},
		{"unknown site", reports.ErrUnknownSite, http.StatusBadRequest},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"expired token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"missing report", fmt.Errorf("get: %w", reports.ErrReportNotFound), http.StatusNotFound},
		{"duplicate email", auth.ErrEmailTaken, http.StatusConflict},
		{"lost race", reports.ErrConcurrentUpdate, http.StatusConflict},
		{"category only", goerrors.New("slow down", goerrors.CategoryRateLimit), http.StatusTooManyRequests},
		{"forbidden", goerrors.New("admins only", goerrors.CategoryAuthz), http.StatusForbidden},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped internal", goerrors.Wrap(errors.New("disk"), goerrors.CategoryInternal, "failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestRespondErrorClientFailure(t *testing.T) {
	w := respond("", workflow.Validate("REPORTED", "COLLECTED"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid status transition REPORTED -> COLLECTED"}`, w.Body.String())
}

func TestRespondErrorValidationFields(t *testing.T) {
	err := goerrors.NewValidation("invalid waste report",
		goerrors.FieldError{Field: "quantity", Message: "must be greater than 0"})

	w := respond("", err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid waste report","fields":{"quantity":"must be greater than 0"}}`, w.Body.String())
}

func TestRespondErrorInternalLogsRequestID(t *testing.T) {
	logs := captureLog(t)
	cause := errors.New("connection refused")

	w := respond("req-42", goerrors.Wrap(cause, goerrors.CategoryInternal, "failed to query waste reports"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Something went wrong!","message":"Internal server error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "connection refused")

	assert.Contains(t, logs.String(), "[req-42] GET /api/waste failed")
	assert.Contains(t, logs.String(), "failed to query waste reports: connection refused")
}

func TestRespondErrorInternalDebugDetail(t *testing.T) {
	captureLog(t)
	gin.SetMode(gin.DebugMode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	router := gin.New()
	router.GET("/api/waste", func(c *gin.Context) {
		RespondError(c, errors.New("disk full"))
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/waste", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk full")
}
