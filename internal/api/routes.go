package api

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/capm-lab-go/internal/api/handlers"
	"github.com/irfndi/capm-lab-go/internal/config"
	"github.com/irfndi/capm-lab-go/internal/logging"
	"github.com/irfndi/capm-lab-go/internal/middleware"
	"github.com/irfndi/capm-lab-go/internal/services"
	"github.com/irfndi/capm-lab-go/internal/telemetry"
)

// SetupRoutes configures all the HTTP routes for the application.
// checkers holds the health probes of the optional backing services.
func SetupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	lab *services.LabService,
	logger *logging.StandardLogger,
	adminMiddleware *middleware.AdminMiddleware,
	checkers map[string]handlers.HealthChecker,
) {
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = telemetry.ServiceName
	}

	router.Use(otelgin.Middleware(serviceName))
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))

	healthHandler := handlers.NewHealthHandler(checkers, lab, telemetry.ServiceVersion)
	router.GET("/health", gin.WrapF(healthHandler.HealthCheck))
	router.HEAD("/health", gin.WrapF(healthHandler.HealthCheck))
	router.GET("/live", gin.WrapF(healthHandler.LivenessCheck))

	capmHandler := handlers.NewCAPMHandler(lab)
	sessionHandler := handlers.NewSessionHandler(lab)
	presetHandler := handlers.NewPresetHandler(lab)

	v1 := router.Group("/api/v1")
	{
		model := v1.Group("/capm")
		{
			model.GET("/domains", capmHandler.GetDomains)
			model.GET("/calculate", capmHandler.CalculateQuery)
			model.POST("/calculate", capmHandler.Calculate)
			model.GET("/sml", capmHandler.GetSML)
			model.POST("/required-beta", capmHandler.RequiredBeta)
			model.POST("/beta/estimate", capmHandler.EstimateBeta)
		}

		v1.GET("/presets", presetHandler.GetPresets)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.PATCH("/:id/inputs", sessionHandler.UpdateInputs)
			sessions.POST("/:id/reset", sessionHandler.Reset)
			sessions.POST("/:id/presets/:name", sessionHandler.ApplyPreset)
			sessions.PATCH("/:id/challenge", sessionHandler.UpdateChallenge)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)
		}

		admin := v1.Group("/admin")
		admin.Use(adminMiddleware.RequireAdminAuth())
		{
			admin.GET("/presets/:name", presetHandler.GetCustomPreset)
			admin.PUT("/presets/:name", presetHandler.UpsertPreset)
			admin.DELETE("/presets/:name", presetHandler.DeletePreset)
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
