package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, t *Tracker) {
	apiGroup := r.Group("/api")
	apiGroup.GET("/status", t.GetStatus)
	apiGroup.GET("/units", t.GetUnits)
	apiGroup.GET("/history", t.GetHistory)
}

// NewRouter returns a release-mode engine serving t.
func NewRouter(t *Tracker, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if debug {
		router.Use(gin.Logger())
	}
	SetupRoutes(router, t)
	return router
}
