package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gymflow/gymflow-api/internal/middleware"
	"github.com/gymflow/gymflow-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// idParam parses a positive int64 path parameter; zero means invalid.
func idParam(c *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// queryInt64 parses an optional int64 query parameter.
func queryInt64(c *gin.Context, name string) int64 {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
