// Package api exposes the environment over HTTP: episodes are run
// server-side against a configured policy and persisted for audit.
package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stellarlinkco/rlgym/internal/app"
	"github.com/stellarlinkco/rlgym/internal/config"
	"github.com/stellarlinkco/rlgym/internal/policy"
	"github.com/stellarlinkco/rlgym/internal/store"
)

type Server struct {
	router   *gin.Engine
	runner   *app.Runner
	store    store.Store
	policies *policy.Registry
	config   *config.Config
	logger   *zap.Logger
}

// NewServer builds the HTTP facade. The runner owns a set-up environment;
// episodes run sequentially through it.
func NewServer(cfg *config.Config, runner *app.Runner, st store.Store, policies *policy.Registry, logger *zap.Logger) (*Server, error) {
	if runner == nil {
		return nil, errors.New("api: nil runner")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	s := &Server{
		router:   r,
		runner:   runner,
		store:    st,
		policies: policies,
		config:   cfg,
		logger:   logger,
	}
	s.registerMiddleware()
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	if s == nil || s.router == nil {
		return errors.New("api: nil server")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = ":8080"
	}
	return s.router.Run(addr)
}
