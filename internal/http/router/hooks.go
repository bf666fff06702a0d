package router

import (
	"github.com/gin-gonic/gin"

	"wealthos.app/roundtable/internal/http/handler"
)

func HooksRouter(router *gin.RouterGroup, handler *handler.HooksHandler) {
	router.POST("/turns", handler.IngestTurnEvent)
}
