// File: internal/server/server.go
// Description: Operator triage API. Exposes the alert store, the escalation
// channel's triage list, the latest persisted report, and the metrics
// endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/escalation"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/guardian"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/observability"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/reporting"
)

// Server is the HTTP triage surface for operators.
type Server struct {
	logger   *zap.Logger
	guardian *guardian.Guardian
	severe   *escalation.SevereAlerts
	store    schemas.ReportStore
	address  string
}

// New creates a Server.
func New(logger *zap.Logger, g *guardian.Guardian, severe *escalation.SevereAlerts, reportStore schemas.ReportStore, address string) *Server {
	return &Server{
		logger:   logger.Named("server"),
		guardian: g,
		severe:   severe,
		store:    reportStore,
		address:  address,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(observability.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.GET("/alerts", s.listAlerts)
		api.GET("/alerts/history", s.alertHistory)
		api.POST("/alerts/:id/resolve", s.resolveAlert)

		api.GET("/triage", s.listTriage)
		api.POST("/triage/:id/in-progress", s.triageInProgress)
		api.POST("/triage/:id/resolve", s.triageResolve)

		api.GET("/reports/latest", s.latestReport)
	}
	return r
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Triage API listening", zap.String("address", s.address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) listAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": s.guardian.ActiveAlerts()})
}

func (s *Server) alertHistory(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	c.JSON(http.StatusOK, gin.H{"history": s.guardian.History(limit)})
}

func (s *Server) resolveAlert(c *gin.Context) {
	id := c.Param("id")
	if !s.guardian.Resolve(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": id})
}

func (s *Server) listTriage(c *gin.Context) {
	if c.Query("status") == "pending" {
		c.JSON(http.StatusOK, gin.H{"triage": s.severe.Pending()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"triage": s.severe.All()})
}

func (s *Server) triageInProgress(c *gin.Context) {
	id := c.Param("id")
	if !s.severe.MarkInProgress(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "entry not found or not pending"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"in_progress": id})
}

func (s *Server) triageResolve(c *gin.Context) {
	id := c.Param("id")
	if !s.severe.ResolveTriage(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "entry not found or already resolved"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": id})
}

func (s *Server) latestReport(c *gin.Context) {
	reports, err := s.store.LatestReports(c.Request.Context(), 1)
	if err != nil {
		s.logger.Error("Cannot load latest report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot load latest report"})
		return
	}
	if len(reports) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reports persisted yet"})
		return
	}
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(reporting.Daily(&reports[0])))
		return
	}
	c.JSON(http.StatusOK, reports[0])
}
