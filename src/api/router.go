package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) attachRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Api-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/token", s.issueToken)

		secured := v1.Use(JWTMiddleware([]byte(s.cfg.JWTSecret)))
		secured.POST("/runs", s.startRun)
		secured.GET("/runs/:id/progress", s.progress)
		secured.POST("/runs/:id/cancel", s.cancel)
		secured.GET("/runs/:id/report", s.report)
		secured.GET("/runs/:id/report.pdf", s.reportPDF)
	}
}
