package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grantpath/grantpath/src/advisor"
	"github.com/grantpath/grantpath/src/cache"
	"github.com/grantpath/grantpath/src/dataset"
	"github.com/grantpath/grantpath/src/reports"
)

// startRun accepts a profile and returns the run handle immediately; the
// pipeline itself runs on its own worker.
func (s *Server) startRun(c *gin.Context) {
	var profile dataset.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	id := s.mgr.Start(s.table, s.sanitizeProfile(profile))
	c.JSON(http.StatusAccepted, gin.H{"run_id": id})
}

func (s *Server) progress(c *gin.Context) {
	id := c.Param("id")
	snap, err := s.mgr.Progress(id)
	if errors.Is(err, advisor.ErrUnknownRun) {
		// The run may already be consumed; serve the cached terminal snapshot.
		if s.store != nil {
			if cached, cerr := s.store.GetSnapshot(c.Request.Context(), id); cerr == nil {
				c.JSON(http.StatusOK, cached)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"err": "unknown run"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) cancel(c *gin.Context) {
	id := c.Param("id")
	run, err := s.mgr.Get(id)
	if errors.Is(err, advisor.ErrUnknownRun) {
		c.JSON(http.StatusNotFound, gin.H{"err": "unknown run"})
		return
	}
	if run.Progress().State.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"err": "run already finished", "state": run.Progress().State})
		return
	}
	run.Cancel()
	c.JSON(http.StatusOK, run.Progress())
}

// report returns the terminal outcome: the report for a completed run, or
// the terminal status plus partial results for a cancelled or failed one.
// Consumed runs are served from the cache.
func (s *Server) report(c *gin.Context) {
	id := c.Param("id")
	report, snap, err := s.mgr.Result(id)
	switch {
	case errors.Is(err, advisor.ErrUnknownRun):
		if s.store != nil {
			if cached, cerr := s.store.GetReport(c.Request.Context(), id); cerr == nil {
				c.JSON(http.StatusOK, gin.H{"status": advisor.StateCompleted, "report": cached})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"err": "unknown run"})
		return
	case errors.Is(err, advisor.ErrRunActive):
		c.JSON(http.StatusAccepted, gin.H{"status": snap.State, "progress": snap})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	run, gerr := s.mgr.Get(id)
	var partial interface{}
	if gerr == nil {
		partial = run.Results()
	}
	s.persistTerminal(c, id, report, snap)
	if _, _, cerr := s.mgr.Consume(id); cerr != nil && !errors.Is(cerr, advisor.ErrUnknownRun) {
		log.Printf("api: consume run %s: %v", id, cerr)
	}

	switch snap.State {
	case advisor.StateCompleted:
		c.JSON(http.StatusOK, gin.H{"status": snap.State, "report": report})
	case advisor.StateCancelled:
		c.JSON(http.StatusOK, gin.H{"status": snap.State, "results": partial})
	default:
		c.JSON(http.StatusOK, gin.H{"status": snap.State, "err": snap.Error, "results": partial})
	}
}

func (s *Server) reportPDF(c *gin.Context) {
	id := c.Param("id")
	var report *advisor.Report

	if run, err := s.mgr.Get(id); err == nil {
		report = run.Report()
		if report == nil {
			c.JSON(http.StatusAccepted, gin.H{"status": run.Progress().State})
			return
		}
	} else if s.store != nil {
		cached, cerr := s.store.GetReport(c.Request.Context(), id)
		if errors.Is(cerr, cache.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"err": "unknown run"})
			return
		}
		if cerr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"err": cerr.Error()})
			return
		}
		report = cached
	} else {
		c.JSON(http.StatusNotFound, gin.H{"err": "unknown run"})
		return
	}

	pdf, err := reports.GeneratePDF(id, report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=funding-report-"+id+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// persistTerminal caches the terminal report and snapshot so later polls
// survive run consumption.
func (s *Server) persistTerminal(c *gin.Context, id string, report *advisor.Report, snap advisor.Snapshot) {
	if s.store == nil {
		return
	}
	ctx := c.Request.Context()
	if report != nil {
		if err := s.store.SaveReport(ctx, id, report); err != nil {
			log.Printf("api: cache report %s: %v", id, err)
		}
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		log.Printf("api: cache snapshot %s: %v", id, err)
	}
}
