package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/loopline-app/loopline/backend/internal/models"
)

// getUserIDFromContext returns the authenticated user's id from the JWT
// claims stored by the auth middleware, or 0 when no identity is bound.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}
