package handler

import (
	"github.com/SergeiKhy/tinylink/internal/middleware"
	"github.com/SergeiKhy/tinylink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	linkService service.LinkService,
	resolver service.Resolver,
	baseURL string,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))

	linkHandler := NewLinkHandler(linkService, resolver, baseURL, logger)

	router.GET("/healthz", HealthCheck)

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		v1.POST("/links", linkHandler.CreateLink)
		v1.GET("/links", linkHandler.ListLinks)
		v1.GET("/links/:code", linkHandler.GetLink)
		v1.DELETE("/links/:code", linkHandler.DeleteLink)
	}

	// Редирект: /abc123 и /?code=abc123
	router.GET("/", linkHandler.RedirectByQuery)
	router.GET("/:code", linkHandler.Redirect)

	return router
}
