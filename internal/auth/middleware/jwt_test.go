package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongdat/filehub-backend/internal/auth"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
)

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAuthRouter(t *testing.T, m *auth.JWTManager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "console"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", JWTAuth(m, log), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		role, _ := GetRole(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID, "role": role})
	})
	return r
}

func doRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	m := auth.NewJWTManager("test-secret", "filehub", time.Hour)
	r := newAuthRouter(t, m)

	token, err := m.GenerateToken(42, "USER")
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":42`)
}

func TestJWTAuthRejectionsUseResponseEnvelope(t *testing.T) {
	m := auth.NewJWTManager("test-secret", "filehub", time.Hour)
	other := auth.NewJWTManager("different-secret", "filehub", time.Hour)
	r := newAuthRouter(t, m)

	foreign, err := other.GenerateToken(42, "USER")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"missing header", "", apperrors.ErrUnauthorized},
		{"malformed header", "Token abc", apperrors.ErrUnauthorized},
		{"bad signature", "Bearer " + foreign, apperrors.ErrAuthInvalidToken},
		{"garbage token", "Bearer not-a-token", apperrors.ErrAuthInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}
