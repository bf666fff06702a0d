package router

import (
	"github.com/gin-gonic/gin"

	"wealthos.app/roundtable/internal/http/handler"
	"wealthos.app/roundtable/internal/queue"
	"wealthos.app/roundtable/internal/service"
)

type RouterConfig struct {
	AdminAPIKey string
	TraceHeader string
}

func SetupRoutes(router *gin.Engine, services *service.Services, producer queue.Producer, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		discussionHandler := handler.NewDiscussionHandler(services.Discussions(), services.RosterPlanner())
		DiscussionRouter(v1.Group("/discussions"), discussionHandler)

		personaHandler := handler.NewPersonaHandler(services.Personas(), cfg.AdminAPIKey)
		PersonaRouter(v1.Group("/personas"), personaHandler)

		hooksHandler := handler.NewHooksHandler(producer, cfg.TraceHeader)
		HooksRouter(v1.Group("/hooks"), hooksHandler)
	}
}
