package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/auth"
)

type stubVerifier map[string]string

func (s stubVerifier) VerifyIDToken(_ context.Context, token string) (*fbauth.Token, error) {
	uid, ok := s[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &fbauth.Token{UID: uid, Claims: map[string]interface{}{"email": uid + "@example.com"}}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(FirebaseAuthMiddleware(stubVerifier{"good": "uid-1"}))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"owner": auth.Owner(c), "email": c.GetString("email")})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
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
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"owner":"uid-1","email":"uid-1@example.com"}`, w.Body.String())
			}
		})
	}
}
