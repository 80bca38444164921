package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"futures-signal-dashboard/internal/history"
)

// handleSignals returns the active board with the engine's health status.
func (s *Server) handleSignals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"signals":     s.engine.Board(),
		"status":      s.engine.Status(),
		"lastUpdated": s.engine.LastUpdated(),
	})
}

// handleHistory builds a performance report over resolved signals. The
// filter query parameter selects the window; custom requires a date in
// YYYY-MM-DD form.
func (s *Server) handleHistory(c *gin.Context) {
	filter := history.Filter(c.DefaultQuery("filter", string(history.FilterAll)))
	if !history.ValidFilter(filter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return
	}

	var customDate time.Time
	if filter == history.FilterCustom {
		raw := c.Query("date")
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "custom filter requires date=YYYY-MM-DD"})
			return
		}
		customDate = parsed
	}

	report := s.archive.Report(filter, customDate, time.Now().UTC())
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSentiment(c *gin.Context) {
	c.JSON(http.StatusOK, s.sentiment.Current())
}

func (s *Server) handleMarket(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Market())
}

// handleAssetInfo looks up fundamental metadata for one asset symbol.
func (s *Server) handleAssetInfo(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	info, err := s.assets.Lookup(c.Request.Context(), symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("asset lookup failed")
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// handleValidate runs an AI second opinion on one board signal.
func (s *Server) handleValidate(c *gin.Context) {
	if s.validator == nil || !s.validator.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal validation is not configured"})
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	for _, sig := range s.engine.Board() {
		if sig.Symbol != symbol {
			continue
		}
		analysis, err := s.validator.ValidateSignal(c.Request.Context(), sig)
		if err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("signal validation failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "validation request failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"symbol": symbol, "analysis": analysis})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "no active signal for symbol"})
}

// handleHealth reports liveness plus the store and engine condition.
func (s *Server) handleHealth(c *gin.Context) {
	storeHealthy := true
	if hr, ok := s.store.(interface{ IsHealthy() bool }); ok {
		storeHealthy = hr.IsHealthy()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"engineStatus": s.engine.Status(),
		"storeHealthy": storeHealthy,
		"wsClients":    s.hub.clientCount(),
		"uptime":       time.Since(s.startedAt).String(),
		"lastUpdated":  s.engine.LastUpdated(),
	})
}
