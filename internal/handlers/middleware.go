package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorIDKey holds the authenticated operator id in the gin context.
const operatorIDKey = "operatorID"

const (
	errMissingToken = "operator token required"
	errTokenFormat  = "authorization must be \"Bearer <token>\""
	errTokenInvalid = "operator token invalid or expired"
)

// requireOperator guards the /api/v1 group. Sensor pushes bypass it.
func (h *Handler) requireOperator(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingToken})
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errTokenFormat})
		return
	}

	operatorID, err := h.services.ParseToken(token)
	if err != nil {
		h.log.Debugw("operator_token_rejected", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	c.Set(operatorIDKey, operatorID)
	c.Next()
}

// operatorID returns the id set by requireOperator, 0 when absent.
func operatorID(c *gin.Context) int {
	return c.GetInt(operatorIDKey)
}
