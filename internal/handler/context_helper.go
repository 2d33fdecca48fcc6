package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-allotment-api/internal/middleware"
)

// callerIdentity prefers token claims and falls back to the values the
// legacy frontend sends in the payload or query.
func callerIdentity(c *gin.Context, role, name string) (string, string) {
	if claims := middleware.Claims(c); claims != nil {
		return string(claims.Role), claims.Name
	}
	return strings.TrimSpace(role), strings.TrimSpace(name)
}
