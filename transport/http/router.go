package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/rangda/ports"
	"github.com/layer-3/rangda/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(handshake *service.HandshakeService, tokenizer ports.Tokenizer, eventPub ports.EventPublisher) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(handshake, tokenizer, eventPub)

	// Handshake routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(tokenizer))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
