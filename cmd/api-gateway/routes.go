package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/clinic-booking-api/internal/handler"
	"github.com/noah-isme/clinic-booking-api/internal/middleware"
	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/pkg/config"
	"github.com/noah-isme/clinic-booking-api/pkg/logger"
	"github.com/noah-isme/clinic-booking-api/pkg/middleware/cors"
	"github.com/noah-isme/clinic-booking-api/pkg/middleware/requestid"
)

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(cors.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics, "/health", "/ready", "/metrics"))
	r.Use(middleware.WithResponseMeta())

	ops := handler.NewMetricsHandler(a.metrics, a.checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	slots := handler.NewSlotHandler(a.slots)
	duties := handler.NewDutyHandler(a.duties)
	bookings := handler.NewBookingHandler(a.bookings)
	conditions := handler.NewConditionHandler(a.eligible, a.bookings)

	admin := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group(a.cfg.APIPrefix)
	api.Use(middleware.JWT(a.tokens))
	{
		api.GET("/slots", slots.List)
		api.GET("/slots/:id", slots.Get)
		api.POST("/slots", admin, slots.Define)
		api.PUT("/slots/:id", admin, slots.Revise)
		api.DELETE("/slots/:id", admin, slots.Remove)
		api.GET("/doctors/:id/week-schedule", slots.WeekSchedule)

		api.GET("/duties", duties.Query)
		api.POST("/duties", admin, duties.Assign)
		api.PUT("/duties/:id", admin, duties.Reassign)
		api.DELETE("/duties/:id", admin, duties.Unassign)

		api.GET("/departments/:id/slots", slots.ListForDepartment)
		api.DELETE("/departments/:id/slots", admin, slots.RemoveForDepartment)
		api.DELETE("/departments/:id/duties", admin, duties.UnassignAllForDepartment)

		api.GET("/conditions/:id/doctors", conditions.Doctors)
		api.GET("/conditions/:id/timetable", conditions.Timetable)

		api.POST("/bookings", middleware.RequireRoles(models.RolePatient, models.RoleAdmin), bookings.Request)
		api.GET("/bookings/:id", bookings.Get)
		api.POST("/bookings/:id/cancel", middleware.RequireRoles(models.RolePatient, models.RoleAdmin), bookings.Cancel)
		api.POST("/bookings/:id/complete", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin), bookings.Complete)
		api.POST("/bookings/:id/confirm-payment", admin, bookings.ConfirmPayment)

		api.GET("/patients/:id/bookings", middleware.RBAC([]models.UserRole{models.RoleAdmin}, middleware.Self(models.RolePatient)), bookings.ListForPatient)
		doctorSelf := middleware.RBAC([]models.UserRole{models.RoleAdmin}, middleware.Self(models.RoleDoctor))
		api.GET("/doctors/:id/bookings", doctorSelf, bookings.ListForDoctorAndWeekday)
		api.GET("/doctors/:id/bookings/export", doctorSelf, bookings.ExportDoctorDay)
	}

	return r
}
