package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxUserID      = "user_id"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context
// This is set by FirebaseAuthMiddleware
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// Owner identifies the caller for project ownership: the verified Firebase
// UID when present, otherwise the development user id.
func Owner(c *gin.Context) string {
	if uid := UserFirebaseUID(c); uid != "" {
		return uid
	}
	return strings.TrimSpace(c.GetString(CtxUserID))
}
