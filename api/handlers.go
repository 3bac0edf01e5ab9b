package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stellarlinkco/rlgym/internal/env"
	"github.com/stellarlinkco/rlgym/internal/policy"
	"github.com/stellarlinkco/rlgym/internal/store"
)

type runEpisodeRequest struct {
	// Policy selects a configured provider by name. Empty uses the
	// configured default.
	Policy string `json:"policy,omitempty"`
	// Response short-circuits the provider: the episode is scored against
	// this fixed response instead. Useful for offline scoring.
	Response string `json:"response,omitempty"`
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRunEpisode(c *gin.Context) {
	if s == nil || s.runner == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	var req runEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	p, err := s.resolvePolicy(&req)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	rec, err := s.runner.RunEpisode(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, env.ErrEmptyDataset) {
			respondError(c, http.StatusConflict, err)
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (s *Server) resolvePolicy(req *runEpisodeRequest) (policy.Policy, error) {
	if strings.TrimSpace(req.Response) != "" {
		return policy.Echo(req.Response), nil
	}

	name := strings.TrimSpace(req.Policy)
	if name == "" && s.config != nil {
		name = strings.TrimSpace(s.config.Policy.DefaultProvider)
	}
	if s.policies == nil {
		return nil, errors.New("no policy providers configured")
	}
	p, ok := s.policies.Get(name)
	if !ok {
		return nil, fmt.Errorf("policy %q not configured", name)
	}
	return p, nil
}

func (s *Server) handleListEpisodes(c *gin.Context) {
	if s == nil || s.store == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	filter := store.EpisodeFilter{
		Policy: strings.TrimSpace(c.Query("policy")),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		filter.Limit = n
	}

	episodes, err := s.store.ListEpisodes(c.Request.Context(), filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if episodes == nil {
		episodes = []*store.EpisodeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"episodes": episodes})
}

func (s *Server) handleGetEpisode(c *gin.Context) {
	if s == nil || s.store == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing episode id"))
		return
	}

	rec, err := s.store.GetEpisode(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, err)
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleSummary(c *gin.Context) {
	if s == nil || s.store == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	sum, err := s.store.Summarize(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
