// Package server exposes the engine over HTTP: the websocket streaming
// endpoint, the pull-style snapshot queries, health and metrics.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finsight/quotestream/internal/quotes"
	"github.com/finsight/quotestream/internal/ws"
)

// Server hosts the engine's external interfaces.
type Server struct {
	logger    *zap.Logger
	registry  *quotes.Registry
	engine    *quotes.Broadcaster
	snapshots *quotes.SnapshotService
	upgrader  websocket.Upgrader

	httpServer *http.Server
}

func NewServer(logger *zap.Logger, registry *quotes.Registry, engine *quotes.Broadcaster, snapshots *quotes.SnapshotService) *Server {
	return &Server{
		logger:    logger,
		registry:  registry,
		engine:    engine,
		snapshots: snapshots,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP router.
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(cors.Default())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws/quotes", s.handleQuotesWS)

	api := router.Group("/api")
	{
		api.GET("/quotes/initial", s.handleInitial)
		api.GET("/quotes/movers", s.handleMovers)
		api.GET("/symbols", s.handleSymbols)
	}

	return router
}

// handleQuotesWS upgrades the connection and runs the session until the
// client disconnects. The session starts on the default symbol set and
// replaces it with each SUB frame.
func (s *Server) handleQuotesWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := ws.NewSession(conn, s.logger)
	s.registry.Register(sess)
	go sess.WritePump()

	sess.ReadPump(func(data []byte) {
		s.engine.HandleMessage(sess, data)
	})

	s.registry.Unregister(sess)
	sess.Close()
}

func (s *Server) handleInitial(c *gin.Context) {
	symbols := parseSymbolsParam(c.Query("symbols"))
	c.JSON(http.StatusOK, s.snapshots.Initial(symbols))
}

func (s *Server) handleMovers(c *gin.Context) {
	gainers, losers := s.snapshots.Movers(3)
	c.JSON(http.StatusOK, gin.H{"gainers": gainers, "losers": losers})
}

func (s *Server) handleSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": s.snapshots.Symbols()})
}

func parseSymbolsParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		sym := strings.ToUpper(strings.TrimSpace(part))
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// Start begins serving on addr. It returns once the listener stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
