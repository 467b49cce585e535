package handler

import "github.com/gin-gonic/gin"

// Handlers groups the API handlers mounted under the API prefix.
type Handlers struct {
	Subjects     *SubjectHandler
	Slots        *SlotHandler
	Parameters   *ParametersHandler
	Availability *AvailabilityHandler
	Schedules    *ScheduleHandler
	Generator    *ScheduleGeneratorHandler
}

// Register mounts every API route on group.
func (h Handlers) Register(group gin.IRouter) {
	subjects := group.Group("/subjects")
	subjects.GET("", h.Subjects.List)
	subjects.POST("", h.Subjects.Create)
	subjects.GET("/:id", h.Subjects.Get)
	subjects.PUT("/:id", h.Subjects.Rename)

	slots := group.Group("/slots")
	slots.GET("", h.Slots.List)
	slots.POST("", h.Slots.Create)
	slots.GET("/:id", h.Slots.Get)

	group.GET("/parameters", h.Parameters.Get)
	group.PUT("/parameters", h.Parameters.Update)

	availabilities := group.Group("/availabilities")
	availabilities.GET("", h.Availability.List)
	availabilities.POST("", h.Availability.Create)
	availabilities.GET("/:id", h.Availability.Get)
	availabilities.GET("/:id/ranking", h.Availability.Ranking)

	schedules := group.Group("/schedules")
	schedules.GET("", h.Schedules.List)
	schedules.POST("/generate", h.Generator.Generate)
	schedules.POST("/revert", h.Schedules.Revert)
	schedules.GET("/:id", h.Schedules.Get)
	schedules.GET("/:id/export", h.Schedules.Export)
	schedules.GET("/:id/ancestry", h.Schedules.Ancestry)
	schedules.GET("/:id/subjects/:subjectId/stats", h.Schedules.Stats)
}
