package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"coin-observer/src/interfaces"
	"coin-observer/src/logger"
	"coin-observer/src/models"

	"github.com/gin-gonic/gin"
)

const (
	broadcastQueue  = 256
	shutdownTimeout = 5 * time.Second
)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

type DashboardServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Provider interfaces.IAnalyticsProvider
	engine   *gin.Engine
	http     *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	connections atomic.Int64
	broadcast   chan *models.MLatestData
	register    chan *Client
	unregister  chan *Client
	resync      chan *Client
	quit        chan struct{}
	hubOnce     sync.Once
	stopOnce    sync.Once

	// Last published rankings
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, provider interfaces.IAnalyticsProvider, log *logger.Logger) *DashboardServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewLogger(cfg, "DashboardServer")
	}

	s := &DashboardServer{
		Config:     cfg,
		Logger:     log,
		Provider:   provider,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *models.MLatestData, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		resync:     make(chan *Client),
		quit:       make(chan struct{}),
		latestState: &models.MLatestData{
			Type:   "INITIAL",
			Hot:    []*models.MCoinAnalytics{},
			Stable: []*models.MCoinAnalytics{},
		},
	}

	s.engine.Use(gin.Recovery(), corsMiddleware())
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/hot", s.getHot)
	api.GET("/stable", s.getStable)
	api.GET("/all", s.getAll)
	api.GET("/coins/:symbol", s.getCoin)
	api.GET("/changes", s.getChanges)
	api.GET("/changes/debug", s.getChangesDebug)
	api.GET("/cache", s.getCache)
	api.DELETE("/cache", s.clearCache)
	api.POST("/cache/:partition/refresh", s.refreshPartition)
	api.GET("/config", s.getConfig)
	api.GET("/health", s.getHealth)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *DashboardServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves HTTP until Stop is called.
func (s *DashboardServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	s.startHub()

	s.Logger.Info("Starting dashboard server on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *DashboardServer) startHub() {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.http != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = s.http.Shutdown(ctx)
		}
		s.Logger.Info("Dashboard server stopped")
	})
	return err
}
