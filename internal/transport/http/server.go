// Package enginehttp exposes the execution engine's operations as a small
// JSON API. This is the surface a conversational front end calls; no
// rendering or session state lives here.
package enginehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"normex/internal/engine"
	"normex/internal/exchange"
	"normex/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server hosts the engine API.
type Server struct {
	addr   string
	router *gin.Engine
}

// NewServer wires the routes.
func NewServer(addr string, eng *engine.Engine) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine http server requires an engine")
	}
	if addr == "" {
		addr = ":8870"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{engine: eng}
	api := router.Group("/api/v1")
	{
		api.POST("/orders", h.openPosition)
		api.POST("/orders/trigger", h.placeTrigger)
		api.POST("/orders/cancel", h.cancelOrder)
		api.POST("/orders/cancel-all", h.cancelAllOrders)
		api.POST("/positions/close", h.closePosition)
		api.POST("/positions/tpsl", h.setTpSl)
		api.GET("/positions/:venue/:symbol", h.getPosition)
		api.POST("/leverage", h.setLeverage)
		api.GET("/leverage/:venue/:symbol", h.getLeverage)
		api.POST("/margin-mode", h.setMarginMode)
		api.GET("/balances", h.balances)
	}

	return &Server{addr: addr, router: router}, nil
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("engine api listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(kind exchange.ErrorKind) int {
	switch kind {
	case exchange.KindSymbolNotFound, exchange.KindPositionNotFound:
		return http.StatusNotFound
	case exchange.KindOrderTooSmall, exchange.KindInvalidTriggerPrice:
		return http.StatusBadRequest
	case exchange.KindUnsupportedCapability, exchange.KindUnsupportedOperation:
		return http.StatusUnprocessableEntity
	case exchange.KindExchangeUnavailable:
		return http.StatusServiceUnavailable
	case exchange.KindInsufficientBalance:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func abortWithError(c *gin.Context, err error) {
	var e *exchange.Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(statusFor(e.Kind), gin.H{
		"error":     e.Kind.Category(),
		"kind":      e.Kind,
		"retryable": e.Kind.Retryable(),
		"detail":    e.Raw,
	})
}
