package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware ajoute les headers de sécurité et CORS
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// StandardErrorResponse standardise les réponses d'erreur sans corps
func StandardErrorResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 && !c.Writer.Written() {
			c.JSON(c.Writer.Status(), gin.H{
				"error":     "An error occurred",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"path":      c.Request.URL.Path,
			})
		}
	}
}
