// Package api exposes the HTTP surface: post ingestion, opinion and
// audit-trail reads, manual lifecycle actions, and author credibility.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer builds the configured gin engine. When accessKey is
// non-empty, mutating endpoints require it in the X-Access-Key header.
func NewServer(handler *Handler, accessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", handler.Health)
	r.GET("/stats", handler.Stats)

	r.GET("/opinions", handler.ListOpinions)
	r.GET("/opinions/:id", handler.GetOpinion)
	r.GET("/opinions/:id/verifications", handler.ListVerifications)
	r.GET("/authors/:id/credibility", handler.GetCredibility)

	mutating := r.Group("/", requireAccessKey(accessKey))
	{
		mutating.POST("/posts", handler.SubmitPost)
		mutating.POST("/posts/reprocess", handler.ReprocessPosts)
		mutating.POST("/opinions/:id/verify", handler.VerifyOpinion)
		mutating.POST("/opinions/:id/close", handler.CloseOpinion)
	}

	return r
}

// NewHTTPServer wraps the engine in an http.Server with sane timeouts.
func NewHTTPServer(engine *gin.Engine, addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func requireAccessKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key != "" && c.GetHeader("X-Access-Key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access key"})
			return
		}
		c.Next()
	}
}
