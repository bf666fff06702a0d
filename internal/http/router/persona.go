package router

import (
	"github.com/gin-gonic/gin"

	"wealthos.app/roundtable/internal/http/handler"
)

func PersonaRouter(router *gin.RouterGroup, handler *handler.PersonaHandler) {
	router.GET("", handler.List)
	router.GET("/:id", handler.Get)

	admin := router.Group("")
	admin.Use(handler.RequireAdminAPIKey())
	admin.POST("", handler.Create)
}
