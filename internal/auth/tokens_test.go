package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("a", "r", time.Minute, time.Hour)

	pair, err := issuer.Issue(42)
	require.NoError(t, err)

	id, err := issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	id, err = issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = issuer.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("a", "r", -time.Minute, time.Hour)

	pair, err := issuer.Issue(1)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewTokenIssuer("a", "r", time.Minute, time.Hour)
	pair, err := issuer.Issue(7)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Middleware(issuer), func(c *gin.Context) {
		id, ok := UserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"valid", "Bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
