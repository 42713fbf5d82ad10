// Package api exposes the fusion engine over HTTP: frame ingestion,
// live statistics, session finalization and authenticated configuration
// updates.
package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/singharyan006/ride-secure/internal/config"
	"github.com/singharyan006/ride-secure/internal/version"
	"github.com/singharyan006/ride-secure/internal/vision"
)

// Server wires a fusion pipeline behind a gin router. The pipeline is
// single-threaded; the mutex serializes frame ingestion, finalization
// and configuration swaps.
type Server struct {
	mu       sync.Mutex
	pipeline *vision.FusionPipeline
	appCfg   config.Config
	log      zerolog.Logger

	lastTimestampMs int64
}

// NewServer builds a server with a fresh session from the application
// config. Pipeline construction errors are fatal here; the server never
// starts with an invalid session.
func NewServer(appCfg config.Config, log zerolog.Logger) (*Server, error) {
	fp, err := vision.NewFusionPipeline(appCfg.PipelineConfig(), vision.FusionDeps{Log: log})
	if err != nil {
		return nil, err
	}
	return &Server{pipeline: fp, appCfg: appCfg, log: log}, nil
}

// Router assembles the gin engine: public read/ingest endpoints plus a
// JWT-protected configuration group.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = s.appCfg.Server.CORSOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/", s.info)
	r.GET("/health", s.health)

	public := r.Group("/api/v1")
	{
		public.POST("/detect/frame", s.detectFrame)
		public.GET("/statistics", s.statistics)
		public.POST("/session/finalize", s.finalizeSession)
		public.GET("/config", s.getConfig)
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware(s.appCfg.Server.JWTSecret))
	{
		protected.POST("/config", s.updateConfig)
	}

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("request")
	}
}

func (s *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "ride-secure",
		"version": version.String(),
		"endpoints": []string{
			"GET /health",
			"POST /api/v1/detect/frame",
			"GET /api/v1/statistics",
			"POST /api/v1/session/finalize",
			"GET /api/v1/config",
			"POST /api/v1/config",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// detectFrame ingests one frame's collaborator observations and returns
// the fusion result.
func (s *Server) detectFrame(c *gin.Context) {
	var obs vision.FrameObservations
	if err := c.ShouldBindJSON(&obs); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if obs.FrameIndex < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("frame_index must be non-negative"))
		return
	}

	s.mu.Lock()
	result := s.pipeline.ProcessObservations(obs)
	if obs.TimestampMs > s.lastTimestampMs {
		s.lastTimestampMs = obs.TimestampMs
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, result)
}

func (s *Server) statistics(c *gin.Context) {
	s.mu.Lock()
	snap := s.pipeline.Stats().Snapshot()
	s.mu.Unlock()
	c.JSON(http.StatusOK, successResponse(snap))
}

// finalizeSession closes the running session, returns its summary and
// starts a fresh session with the current configuration.
func (s *Server) finalizeSession(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := s.pipeline.FinalizeSession(float64(s.lastTimestampMs) / 1000.0)
	fp, err := vision.NewFusionPipeline(s.appCfg.PipelineConfig(), vision.FusionDeps{Log: s.log})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to start fresh session")
		c.JSON(http.StatusInternalServerError, errorResponse("failed to start fresh session"))
		return
	}
	s.pipeline = fp
	s.lastTimestampMs = 0

	c.JSON(http.StatusOK, successResponse(summary))
}

func (s *Server) getConfig(c *gin.Context) {
	s.mu.Lock()
	cfg := s.pipeline.Config()
	s.mu.Unlock()
	c.JSON(http.StatusOK, successResponse(cfg))
}

// updateConfig applies tuning overrides and restarts the session with
// the merged configuration. Rejected atomically when the merged config
// fails validation; the running session is untouched.
func (s *Server) updateConfig(c *gin.Context) {
	var overrides config.PipelineOverrides
	if err := c.ShouldBindJSON(&overrides); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.appCfg
	next.Pipeline = overrides
	fp, err := vision.NewFusionPipeline(next.PipelineConfig(), vision.FusionDeps{Log: s.log})
	if err != nil {
		if errors.Is(err, vision.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		s.log.Error().Err(err).Msg("failed to apply configuration")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	s.appCfg = next
	s.pipeline = fp
	s.lastTimestampMs = 0
	s.log.Info().Msg("pipeline configuration updated, session restarted")

	c.JSON(http.StatusOK, successResponse(fp.Config()))
}

func successResponse(data interface{}) gin.H {
	return gin.H{"data": data}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
