package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
	}{
		{"validation", ValidationError("bad input"), http.StatusBadRequest},
		{"not found", NotFoundError("missing"), http.StatusNotFound},
		{"forbidden", ForbiddenError("inactive license"), http.StatusForbidden},
		{"exhausted", ExhaustedError("no uses left"), http.StatusPaymentRequired},
		{"internal", InternalError("boom", nil), http.StatusInternalServerError},
		{"external", ExternalError("provider down", nil), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestError_MessageFormatting(t *testing.T) {
	cause := stderrors.New("disk full")
	err := InternalError("packaging failed", cause)

	assert.Equal(t, "internal: packaging failed: disk full", err.Error())
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestToResponse_NeverLeaksCause(t *testing.T) {
	cause := stderrors.New("open /var/secret/path: permission denied")
	err := InternalError("processing failed", cause).WithField("session_id", "s1")

	resp := err.ToResponse()
	assert.Equal(t, "processing failed", resp.Error)
	assert.NotContains(t, fmt.Sprintf("%v", resp), "/var/secret/path")
	assert.Equal(t, "s1", resp.Context["session_id"])
}

func TestAsStructuredError_PassesThrough(t *testing.T) {
	original := ValidationError("bad file")
	wrapped := fmt.Errorf("handler: %w", original)

	got := AsStructuredError(wrapped)
	assert.Equal(t, original, got)
}

func TestAsStructuredError_WrapsUnknown(t *testing.T) {
	got := AsStructuredError(stderrors.New("surprise"))
	require.NotNil(t, got)
	assert.Equal(t, TypeInternal, got.Type)
	assert.Equal(t, "processing failed", got.Message)
}

func TestAsStructuredError_Nil(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))
}
