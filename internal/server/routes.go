package server

import "github.com/gin-gonic/gin"

// registerRoutes sets up all API endpoints.
func (s *Server) registerRoutes() *gin.Engine {
	router := gin.New()
	router.Use(s.requestID(), s.accessLog(), s.recovery(), s.cors())

	api := router.Group("/api")
	api.GET("/health", s.healthAction)
	api.GET("/users", s.listUsersAction)

	tasks := api.Group("/tasks")
	tasks.GET("", s.listTasksAction)
	tasks.POST("", s.createTaskAction)
	tasks.GET("/types", s.listTaskTypesAction)
	tasks.GET("/:id", s.getTaskAction)
	tasks.DELETE("/:id", s.deleteTaskAction)
	tasks.POST("/:id/advance", s.advanceTaskAction)
	tasks.POST("/:id/reverse", s.reverseTaskAction)
	tasks.POST("/:id/close", s.closeTaskAction)
	tasks.GET("/:id/history", s.historyAction)

	return router
}
