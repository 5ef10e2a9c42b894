package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scopecast/backend/internal/ai"
	"github.com/scopecast/backend/internal/config"
	httpapi "github.com/scopecast/backend/internal/http"
	"github.com/scopecast/backend/internal/jira"
	"github.com/scopecast/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "scopecast-backend").Logger()

	var tickets service.TicketProvider
	if cfg.JiraConfigured() {
		tickets = jira.NewClient(cfg.JiraBaseURL, cfg.JiraEmail, cfg.JiraAPIToken)
		logger.Info().Str("base_url", cfg.JiraBaseURL).Msg("jira client configured")
	} else {
		logger.Info().Msg("jira credentials not set, estimates run description-only")
	}

	var providers []ai.Provider
	if cfg.MockAI {
		providers = append(providers, ai.MockProvider{ModelVersion: "mock-v1"})
		logger.Info().Msg("using mock AI provider")
	}
	if cfg.AzureOpenAIEndpoint != "" && cfg.AzureOpenAIAPIKey != "" {
		providers = append(providers, &ai.AzureOpenAIProvider{
			Endpoint:   cfg.AzureOpenAIEndpoint,
			APIKey:     cfg.AzureOpenAIAPIKey,
			Deployment: cfg.AzureOpenAIDeployment,
		})
	}
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, ai.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel))
	}
	if len(providers) == 0 {
		logger.Info().Msg("no AI providers configured, estimates are rule-based only")
	}
	chain := ai.Chain{Providers: providers, Timeout: cfg.ProviderTimeout, Logger: logger}

	router := httpapi.Router(cfg, tickets, chain, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
