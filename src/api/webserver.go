package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"github.com/grantpath/grantpath/src/advisor"
	"github.com/grantpath/grantpath/src/cache"
	"github.com/grantpath/grantpath/src/config"
	"github.com/grantpath/grantpath/src/dataset"
)

// Server exposes the advisor pipeline over HTTP: start a run, poll its
// progress, cancel it, and fetch the terminal report as JSON or PDF.
type Server struct {
	cfg    config.Base
	mgr    *advisor.Manager
	store  *cache.ReportStore
	table  *dataset.Table
	policy *bluemonday.Policy
}

// NewServer wires the API to a run manager, the dataset snapshot and an
// optional report cache (nil disables caching).
func NewServer(cfg config.Base, mgr *advisor.Manager, store *cache.ReportStore, table *dataset.Table) *Server {
	return &Server{
		cfg:    cfg,
		mgr:    mgr,
		store:  store,
		table:  table,
		policy: bluemonday.StrictPolicy(),
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	r := gin.New()
	r.Use(gin.Recovery())
	s.attachRoutes(r)

	srv := &http.Server{Addr: s.cfg.BindAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("api: listening on %s", s.cfg.BindAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// sanitizeProfile strips any markup from free-text profile fields before
// they can reach prompts or report bodies.
func (s *Server) sanitizeProfile(p dataset.Profile) dataset.Profile {
	p.ExperienceLevel = s.policy.Sanitize(p.ExperienceLevel)
	p.OrgType = s.policy.Sanitize(p.OrgType)
	p.Region = s.policy.Sanitize(p.Region)
	p.BudgetRange = s.policy.Sanitize(p.BudgetRange)
	p.Goal = s.policy.Sanitize(p.Goal)
	for i, v := range p.Subjects {
		p.Subjects[i] = s.policy.Sanitize(v)
	}
	for i, v := range p.Populations {
		p.Populations[i] = s.policy.Sanitize(v)
	}
	return p
}
