package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ipckit-go/ipckit/internal/config"
	"github.com/ipckit-go/ipckit/internal/eventbus"
	"github.com/ipckit-go/ipckit/internal/framed"
	"github.com/ipckit-go/ipckit/internal/localsocket"
	"github.com/ipckit-go/ipckit/internal/logging"
	"github.com/ipckit-go/ipckit/internal/metrics"
	"github.com/ipckit-go/ipckit/internal/taskmanager"
)

// Server wires every ipckit package into one runnable process: a local
// socket echo endpoint, an embedded event bus and task manager, a metered
// channel per connection, and an HTTP surface exposing health and metrics.
type Server struct {
	router   *gin.Engine
	cfg      *config.Config
	logger   *logging.Logger
	tasks    *taskmanager.Manager
	registry *metrics.Registry
	listener *localsocket.Listener
}

// NewServer constructs a Server from cfg, binding the demo socket listener
// but not yet accepting connections or serving HTTP.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing ipckitd",
		zap.String("socket", cfg.Socket.Name),
		zap.String("http_addr", cfg.HTTP.Host+":"+cfg.HTTP.Port),
	)

	tasks := taskmanager.New(cfg.TaskMgr.ToTaskManagerConfig(cfg.EventBus), logger)
	registry := metrics.NewRegistry("ipckitd")
	registry.Collector().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ln, err := localsocket.Listen(cfg.Socket.Name)
	if err != nil {
		return nil, fmt.Errorf("listen on local socket %q: %w", cfg.Socket.Name, err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:   router,
		cfg:      cfg,
		logger:   logger,
		tasks:    tasks,
		registry: registry,
		listener: ln,
	}

	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry.Collector(), promhttp.HandlerOpts{})))
	router.GET("/tasks", s.handleListTasks)
	router.POST("/tasks", s.handleCreateTask)
	router.GET("/events", s.handleListEvents)

	logger.Info("ipckitd initialized")
	return s, nil
}

// Run starts accepting local-socket connections in the background and
// serves the HTTP surface, blocking until the HTTP server exits.
func (s *Server) Run() error {
	go s.acceptLoop()
	addr := s.cfg.HTTP.Host + ":" + s.cfg.HTTP.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// acceptLoop accepts connections on the demo local socket and echoes every
// framed message back to the sender, metering throughput and latency.
func (s *Server) acceptLoop() {
	for {
		stream, err := s.listener.Accept()
		if err != nil {
			s.logger.Warn("accept failed, stopping accept loop", zap.Error(err))
			return
		}
		go s.serveConn(stream)
	}
}

func (s *Server) serveConn(stream *localsocket.Stream) {
	defer stream.Close()

	label := "echo"
	channel := metrics.NewMetered(framed.New(stream))
	defer channel.Close()

	for {
		start := time.Now()
		payload, err := channel.Recv()
		if err != nil {
			s.registry.ObserveRecvError(label)
			return
		}
		s.registry.ObserveRecv(label, len(payload))

		if err := channel.Send(payload); err != nil {
			s.registry.ObserveSendError(label)
			return
		}
		s.registry.ObserveSend(label, len(payload))
		s.registry.ObserveLatency(label, time.Since(start))
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tasks":  len(s.tasks.List(taskmanager.Filter{})),
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, s.tasks.List(taskmanager.Filter{}))
}

type createTaskRequest struct {
	Name     string `json:"name" binding:"required"`
	TaskType string `json:"task_type" binding:"required"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h, err := s.tasks.Create(taskmanager.NewBuilder(req.Name, req.TaskType))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, h.Info())
}

// handleListEvents returns the task manager's event-bus history, optionally
// filtered by an event_type query parameter supporting the trailing-'*'
// wildcard (e.g. ?event_type=task.*).
func (s *Server) handleListEvents(c *gin.Context) {
	filter := eventbus.Filter{}
	if pattern := c.Query("event_type"); pattern != "" {
		filter.EventTypes = []string{pattern}
	}
	c.JSON(http.StatusOK, s.tasks.EventBus().History(filter))
}

// Close stops accepting connections and releases the local socket.
func (s *Server) Close() error {
	s.logger.Info("shutting down ipckitd")
	if err := s.listener.Close(); err != nil {
		return fmt.Errorf("close listener: %w", err)
	}
	s.logger.Sync()
	return nil
}
