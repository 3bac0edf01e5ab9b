package api

import (
	"errors"
	"os"
	"strings"
)

func (s *Server) registerRoutes() error {
	if s == nil || s.router == nil {
		return nil
	}

	api := s.router.Group("/api")
	apiKey := strings.TrimSpace(os.Getenv("RLGYM_API_KEY"))
	if apiKey != "" {
		api.Use(apiKeyAuthMiddleware(apiKey))
	} else if strings.EqualFold(strings.TrimSpace(os.Getenv("RLGYM_DISABLE_AUTH")), "true") {
		// Explicitly allow unauthenticated access.
	} else {
		return errors.New("api: missing auth configuration: set RLGYM_API_KEY or set RLGYM_DISABLE_AUTH=true")
	}

	api.GET("/health", s.handleHealth)

	api.POST("/episodes", s.handleRunEpisode)
	api.GET("/episodes", s.handleListEpisodes)
	api.GET("/episodes/:id", s.handleGetEpisode)

	api.GET("/summary", s.handleSummary)

	return nil
}
