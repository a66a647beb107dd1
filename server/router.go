package server

import (
	"net/http"
	"time"

	httpHandler "media-publisher/interfaces/http"
	"media-publisher/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	authorizationHandler httpHandler.IAuthorizationHandler,
	publishHandler httpHandler.IPublishHandler,
	jobStream gin.HandlerFunc,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("api")
	api.Use(middleware.Auth())

	// OAuth consent routes. Begin needs the caller's identity; the callback
	// must stay public because the platform redirects the user's browser
	// there without our bearer token.
	router.GET("/auth/:platform", middleware.Auth(), authorizationHandler.BeginAuthorization)
	router.GET("/auth/:platform/callback", authorizationHandler.AuthorizationCallback)
	api.GET("/auth/:platform/status", authorizationHandler.GetAuthorizationStatus)

	// Publish jobs
	api.POST("/publish", publishHandler.Publish)
	api.GET("/publish/stream", jobStream)
	api.GET("/publish/:jobId", publishHandler.GetPublishStatus)

	// Accounts
	api.DELETE("/accounts/:accountId", authorizationHandler.RevokeAccount)
	api.GET("/accounts/:accountId/status", authorizationHandler.GetCredentialStatus)

	// Platform push notifications; signature schemes vary per platform so
	// this route is unauthenticated and unknown ids are dropped downstream.
	router.POST("/webhooks/:platform", publishHandler.Webhook)

	router.POST("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
