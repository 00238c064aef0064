// Package api exposes the simulation session over HTTP.
//
// The session itself is single-writer with no internal locking, so the
// server owns the one mutex that serializes step/reset/state/history
// across gin's per-request goroutines.
package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/golem/config"
	"github.com/pthm-cable/golem/session"
	"github.com/pthm-cable/golem/store"
	"github.com/pthm-cable/golem/telemetry"
)

// Server wires the session and store into HTTP handlers.
type Server struct {
	cfg     *config.Config
	session *session.Session
	store   store.Store

	mu sync.Mutex
}

// New creates a server over an already-recovered session.
func New(cfg *config.Config, sess *session.Session, st store.Store) *Server {
	return &Server{cfg: cfg, session: sess, store: st}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/health", s.handleHealth)

	// Peer endpoints: French keys are the inter-group wire contract.
	router.GET("/taille", s.handleSize)
	router.GET("/population/taille", s.handleSize)
	router.GET("/taux_de_croissance", s.handleGrowthRate)
	router.GET("/population/taux_de_croissance", s.handleGrowthRate)
	router.GET("/taux_de_competition", s.handleCompetition)
	router.GET("/population/taux_de_competition", s.handleCompetition)

	// Simulation endpoints: canonical step-record shape.
	router.POST("/simulation/step", s.handleStep)
	router.GET("/simulation/state", s.handleState)
	router.GET("/simulation/history", s.handleHistory)
	router.POST("/simulation/reset", s.handleReset)
	router.GET("/simulation/stats", s.handleStats)
	router.GET("/simulation/export", s.handleExport)
	router.GET("/database/stats", s.handleDatabaseStats)

	return router
}

// Run serves the API on the configured address, blocking until the server
// stops.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	slog.Info("starting API server", "addr", addr)
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.Lock()
	historyLen := len(s.session.History())
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     "Golem Population API",
		"port":        s.cfg.Server.Port,
		"history_len": historyLen,
	})
}

func (s *Server) handleSize(c *gin.Context) {
	primary := s.cfg.Simulation.Primary

	s.mu.Lock()
	size := s.session.State().Populations[primary]
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"taille":  size,
		"species": primary,
	})
}

func (s *Server) handleGrowthRate(c *gin.Context) {
	primary := s.cfg.Simulation.Primary
	for _, sp := range s.cfg.Simulation.Species {
		if sp.Name == primary {
			c.JSON(http.StatusOK, gin.H{
				"taux_de_croissance": sp.GrowthRate,
				"species":            primary,
			})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "primary species not configured"})
}

func (s *Server) handleCompetition(c *gin.Context) {
	primary := s.cfg.Simulation.Primary
	rivalName := s.cfg.Simulation.Rival
	for _, cc := range s.cfg.Simulation.Competition {
		if cc.From == primary && cc.To == rivalName {
			c.JSON(http.StatusOK, gin.H{
				"taux_de_competition": cc.Alpha,
				"species_i":           primary,
				"species_j":           rivalName,
			})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "competition coefficient not configured"})
}

func (s *Server) handleStep(c *gin.Context) {
	s.mu.Lock()
	rec, err := s.session.Step(c.Request.Context())
	s.mu.Unlock()

	if err != nil {
		slog.Error("step failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleState(c *gin.Context) {
	s.mu.Lock()
	state := s.session.State()
	s.mu.Unlock()

	c.JSON(http.StatusOK, state)
}

func (s *Server) handleHistory(c *gin.Context) {
	s.mu.Lock()
	history := s.session.History()
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"history":     history,
		"total_steps": len(history),
	})
}

func (s *Server) handleReset(c *gin.Context) {
	s.mu.Lock()
	err := s.session.Reset(c.Request.Context())
	s.mu.Unlock()

	if err != nil {
		slog.Error("reset failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "simulation reset",
	})
}

func (s *Server) handleStats(c *gin.Context) {
	s.mu.Lock()
	history := s.session.History()
	s.mu.Unlock()

	c.JSON(http.StatusOK, telemetry.Summarize(history))
}

func (s *Server) handleExport(c *gin.Context) {
	s.mu.Lock()
	history := s.session.History()
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := gocsv.Marshal(telemetry.Rows(history), &buf); err != nil {
		slog.Error("csv export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="history.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (s *Server) handleDatabaseStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		slog.Error("database stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
