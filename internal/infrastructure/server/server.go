// Package server wires the domain components, collaborator clients, and the
// gin router into one process.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/tracepulse/backend/internal/api/http"
	"github.com/tracepulse/backend/internal/api/middleware"
	"github.com/tracepulse/backend/internal/api/ws"
	llmclient "github.com/tracepulse/backend/internal/clients/llm"
	metricsclient "github.com/tracepulse/backend/internal/clients/metrics"
	tracesclient "github.com/tracepulse/backend/internal/clients/traces"
	"github.com/tracepulse/backend/internal/domain/anomaly"
	"github.com/tracepulse/backend/internal/domain/baseline"
	"github.com/tracepulse/backend/internal/domain/correlation"
	"github.com/tracepulse/backend/internal/domain/explain"
	"github.com/tracepulse/backend/internal/domain/training"
	"github.com/tracepulse/backend/internal/infrastructure/config"
	"github.com/tracepulse/backend/internal/infrastructure/logging"
	"github.com/tracepulse/backend/internal/infrastructure/monitoring"
	"github.com/tracepulse/backend/internal/shared/types"
)

// Server wraps the HTTP server and dependencies.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	engine     *baseline.Engine
	detector   *anomaly.Detector
	hub        *ws.Hub
	trainStore *training.Store
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a fully wired server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing TracePulse server",
		zap.String("port", cfg.Server.Port),
		zap.String("trace_source", cfg.Traces.BaseURL),
		zap.String("metrics_source", cfg.Metrics.BaseURL),
		zap.String("llm", cfg.LLM.BaseURL),
	)

	metrics := monitoring.NewMetrics()

	// Collaborator clients.
	traceSource := tracesclient.New(cfg.Traces.BaseURL, cfg.Traces.Timeout)
	metricsSource := metricsclient.New(cfg.Metrics.BaseURL, cfg.Metrics.Timeout)
	llm := llmclient.New(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout, metrics)

	// Statistics engine and detector.
	engine := baseline.NewEngine(traceSource, baseline.Policy{
		BucketFloor: cfg.Detection.BucketFloor,
		Thresholds: types.SeverityThresholds{
			Critical: cfg.Detection.CriticalDeviation,
			Major:    cfg.Detection.MajorDeviation,
			Moderate: cfg.Detection.ModerateDeviation,
			Minor:    cfg.Detection.MinorDeviation,
			Low:      cfg.Detection.LowDeviation,
		},
	}, logger, metrics)

	history := anomaly.NewHistory(cfg.Detection.HistoryLimit)
	hub := ws.NewHub(logger, metrics)

	detector := anomaly.NewDetector(engine, history, anomaly.Policy{
		CriticalDeviation: cfg.Detection.CriticalDeviation,
		MajorDeviation:    cfg.Detection.MajorDeviation,
		ModerateDeviation: cfg.Detection.ModerateDeviation,
		MinorDeviation:    cfg.Detection.MinorDeviation,
		LowDeviation:      cfg.Detection.LowDeviation,
		MinStdDevMs:       cfg.Detection.MinStdDevMs,
	}, logger, metrics).WithAlerts(hub)

	correlator := correlation.NewService(metricsSource, logger)
	pipeline := explain.NewPipeline(llm, correlator, history, logger).WithPublisher(hub)

	// Proactive streaming analysis for actionable anomalies, decoupled from
	// the ingestion path.
	detector.OnActionable(func(anom types.Anomaly) {
		go pipeline.AnalyzeStream(anom)
	})

	trainStore, err := training.NewStore(cfg.Training.Path)
	if err != nil {
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(engine, detector, history, correlator, pipeline, trainStore, cfg.Detection, logger)
	wsHandler := ws.NewHandler(hub)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Ingestion
	router.POST("/spans", handlers.IngestSpan)

	// Baselines and anomalies
	router.GET("/baselines", handlers.ListBaselines)
	router.GET("/anomalies", handlers.ActiveAnomalies)
	router.POST("/recalculate", handlers.Recalculate)

	// Explanations
	router.POST("/analyze/:traceId", handlers.Analyze)
	router.POST("/correlate", handlers.Correlate)

	// Training feedback
	router.POST("/training/rate", handlers.RateExplanation)
	router.GET("/training/stats", handlers.TrainingStats)
	router.GET("/training/export", handlers.ExportTraining)
	router.DELETE("/training/:id", handlers.DeleteTrainingExample)
	router.DELETE("/training", handlers.ClearTraining)

	// Live channel
	router.GET("/stream", wsHandler.HandleConnection)

	// Observability
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:     router,
		engine:     engine,
		detector:   detector,
		hub:        hub,
		trainStore: trainStore,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Router exposes the gin engine, used by integration tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
			return err
		}
	}

	s.logger.Sync()
	return nil
}
