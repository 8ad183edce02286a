package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mortisplay.ru/qa/internal/api/handlers"
	"mortisplay.ru/qa/internal/api/middleware"
	"mortisplay.ru/qa/internal/config"
)

// newRouter assembles the gin engine. Middleware order matters: recovery
// first, then request id, then the error handler so it sees every
// c.Error() pushed downstream, then CORS and flood protection.
func newRouter(cfg *config.Config, srv *handlers.Server, flood *middleware.Flood) (*gin.Engine, error) {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	r.Use(corsMiddleware(cfg.CORS))
	if flood != nil {
		r.Use(flood.Handler())
	}

	v1 := r.Group("/api/v1")

	v1.POST("/questions", srv.PostQuestion)
	v1.GET("/questions", srv.ListQuestions)

	v1.GET("/health/live", srv.GetLiveness)
	v1.GET("/health/ready", srv.GetReadiness)

	// Without configured credentials the whole moderation surface stays
	// off: no login route, no admin group, nothing to probe.
	if cfg.AdminEnabled() {
		v1.POST("/auth/login", srv.Login)

		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth([]byte(cfg.Security.JWTSecret)))
		admin.GET("/questions", srv.AdminListQuestions)
		admin.POST("/questions/:id/approve", srv.ApproveQuestion)
		admin.POST("/questions/:id/reject", srv.RejectQuestion)
	}

	return r, nil
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Retry-After", "X-Request-ID"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(c)
}
