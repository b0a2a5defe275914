package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/engnotes/internal/app/models/dto"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
)

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
		field   string
	}{
		{"not found", apperrors.NewResourceNotFoundError("Degree not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Degree not found", ""},
		{"wrapped user not found", fmt.Errorf("lookup: %w", apperrors.ErrUserNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found", ""},
		{"upload rejected", fmt.Errorf("%w: only PDF files are allowed", apperrors.ErrUploadRejected), http.StatusBadRequest, dto.ErrorCodeUploadRejected, "upload rejected: only PDF files are allowed", "pdfFile"},
		{"missing upload", apperrors.ErrMissingUploadFile, http.StatusBadRequest, dto.ErrorCodeUploadRejected, "please upload a PDF file", "pdfFile"},
		{"validation", apperrors.NewValidationError("validation failed", map[string]string{"name": "required"}), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed", ""},
		{"bad request", apperrors.NewBadRequestError("unknown kind"), http.StatusBadRequest, dto.ErrorCodeBadRequest, "unknown kind", ""},
		{"username exists", apperrors.ErrUsernameExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Username already exists", "username"},
		{"conflict", apperrors.NewConflictError("busy"), http.StatusConflict, dto.ErrorCodeConflict, "busy", ""},
		{"credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid username or password", ""},
		{"expired", apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired", ""},
		{"forbidden", apperrors.NewForbiddenError("admins only"), http.StatusForbidden, dto.ErrorCodeForbidden, "admins only", ""},
		{"blob io", fmt.Errorf("%w: disk full", apperrors.ErrBlobIO), http.StatusInternalServerError, dto.ErrorCodeStorageError, "File storage error", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			HandleAPIError(c, tt.err)

			require.Equal(t, tt.status, w.Code)
			assert.True(t, c.IsAborted())

			var resp dto.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			assert.Equal(t, tt.field, resp.Error.Field)
		})
	}
}
