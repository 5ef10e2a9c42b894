package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/scopecast/backend/internal/ai"
	"github.com/scopecast/backend/internal/config"
	"github.com/scopecast/backend/internal/http/handlers"
	"github.com/scopecast/backend/internal/http/middleware"
	"github.com/scopecast/backend/internal/service"

	_ "github.com/scopecast/backend/docs"
)

func Router(cfg config.Config, tickets service.TicketProvider, chain ai.Chain, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	var completer service.Completer
	if len(chain.Providers) > 0 {
		completer = chain
	}

	h := &handlers.Handler{
		Estimator: &service.Estimator{Tickets: tickets, AI: completer, Logger: logger},
		Designs:   service.NewDesignService(tickets, completer, logger),
		Tickets:   tickets,
		Providers: chain,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/estimate", h.Estimate)
		api.GET("/tickets/:key", h.TicketDetails)
		api.GET("/providers/check", h.ProvidersCheck)
		api.GET("/designs/pending", h.PendingDesigns)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/estimate/export", h.ExportEstimate)
		admin.POST("/designs", h.CreateDesign)
		admin.POST("/designs/:id/approve", h.ApproveDesign)
		admin.POST("/designs/:id/code", h.GenerateCode)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
