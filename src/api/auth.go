package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type tokenRequest struct {
	Subject string `json:"subject" binding:"required"`
}

// issueToken exchanges the shared API key for a bearer token.
func (s *Server) issueToken(c *gin.Context) {
	if s.cfg.APIKey == "" || s.cfg.JWTSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "auth not configured"})
		return
	}
	key := c.GetHeader("X-Api-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.APIKey)) != 1 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": req.Subject,
		"iat": now.Unix(),
		"exp": now.Add(24 * time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "token signing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed})
}
