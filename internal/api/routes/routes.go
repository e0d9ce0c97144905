package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/unistep/internal/api/handlers"
)

type Deps struct {
	Auth      *handlers.AuthHandler
	Site      *handlers.SiteHandler
	Wizard    *handlers.WizardHandler
	Dashboard *handlers.DashboardHandler
	WS        *handlers.WSHandler

	// SessionAuth guards the university dashboard.
	SessionAuth gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/auth/register", d.Auth.Register)
	r.POST("/auth/login", d.Auth.Login)

	r.GET("/site/:login", d.Site.Public)

	// Applicant wizard, anonymous
	r.POST("/apply/:login/wizards", d.Wizard.Mount)
	w := r.Group("/wizards/:id")
	w.GET("", d.Wizard.Get)
	w.DELETE("", d.Wizard.Abandon)
	w.POST("/type", d.Wizard.ChooseType)
	w.PATCH("/fields", d.Wizard.SetFields)
	w.POST("/files/:field", d.Wizard.Upload)
	w.POST("/next", d.Wizard.Next)
	w.POST("/back", d.Wizard.Back)

	if d.WS != nil {
		r.GET("/ws/wizards/:id", d.WS.WizardWS)
	}

	// Protected routes (session)
	auth := r.Group("/")
	auth.Use(d.SessionAuth)

	auth.POST("/auth/logout", d.Auth.Logout)

	auth.GET("/dashboard/site", d.Site.Get)
	auth.PUT("/dashboard/site", d.Site.Update)
	auth.POST("/dashboard/site/images/:field", d.Site.UploadImage)
	auth.POST("/dashboard/site/departments", d.Site.AddDepartment)
	auth.DELETE("/dashboard/site/departments/:id", d.Site.DeleteDepartment)

	auth.GET("/dashboard/applications", d.Dashboard.ListApplications)
	auth.GET("/dashboard/applications/:id", d.Dashboard.GetApplication)
	auth.GET("/dashboard/stats", d.Dashboard.Stats)
}
