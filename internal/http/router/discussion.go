package router

import (
	"github.com/gin-gonic/gin"

	"wealthos.app/roundtable/internal/http/handler"
)

func DiscussionRouter(router *gin.RouterGroup, handler *handler.DiscussionHandler) {
	router.POST("", handler.Create)
	router.POST("/plan", handler.Plan)
	router.GET("/:id", handler.Get)
	router.POST("/:id/advance", handler.Advance)
}
