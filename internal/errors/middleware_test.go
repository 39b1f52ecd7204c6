package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMiddleware(t *testing.T, handlerErr error) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.Use(Middleware())
	e.GET("/test", func(c echo.Context) error {
		if handlerErr != nil {
			return handlerErr
		}
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_NoError(t *testing.T) {
	rec := runMiddleware(t, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMiddleware_StructuredError(t *testing.T) {
	rec := runMiddleware(t, ForbiddenError("license key is not active"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "license key is not active", resp.Error)
	assert.Equal(t, TypeForbidden, resp.Type)
}

func TestMiddleware_UnknownErrorBecomesGeneric(t *testing.T) {
	rec := runMiddleware(t, stderrors.New("scratch dir exploded at /tmp/xyz"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/tmp/xyz")
	assert.Contains(t, rec.Body.String(), "processing failed")
}

func TestMiddleware_EchoHTTPErrorPassesThrough(t *testing.T) {
	rec := runMiddleware(t, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too big"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHTTPErrorType(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{http.StatusBadRequest, TypeValidation},
		{http.StatusRequestEntityTooLarge, TypeValidation},
		{http.StatusTooManyRequests, TypeValidation},
		{http.StatusNotFound, TypeNotFound},
		{http.StatusMethodNotAllowed, TypeNotFound},
		{http.StatusForbidden, TypeForbidden},
		{http.StatusPaymentRequired, TypeExhausted},
		{http.StatusBadGateway, TypeExternal},
		{http.StatusServiceUnavailable, TypeExternal},
		{http.StatusInternalServerError, TypeInternal},
		{http.StatusTeapot, TypeInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, httpErrorType(tt.code), "status %d", tt.code)
	}
}
