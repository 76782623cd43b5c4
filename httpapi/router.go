package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(log *slog.Logger, verifier TokenVerifier, handlers *Handlers, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1", Authenticate(verifier))
	conversations := v1.Group("/conversations")
	conversations.POST("", handlers.Contact)
	conversations.GET("", handlers.ListConversations)
	conversations.GET("/:id/messages", handlers.ListMessages)
	conversations.POST("/:id/messages", handlers.AppendMessage)
	conversations.POST("/:id/read", handlers.MarkRead)
	conversations.GET("/:id/unread", handlers.UnreadCount)
	conversations.GET("/:id/stream", handlers.Stream)
	return router
}
