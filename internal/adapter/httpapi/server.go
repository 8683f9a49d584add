// Package httpapi exposes the receiver over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// Server serves the echo router behind the otelhttp handler.
type Server struct {
	handler http.Handler
	srv     *http.Server
	addr    string
	diag    port.LifecycleDiagnostics
}

// New registers the routes. metrics may be nil, in which case /metrics is not served.
func New(addr string, forecasts ForecastService, metrics http.Handler, logger *slog.Logger, diag port.LifecycleDiagnostics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if diag == nil {
		diag = port.NoopDiagnostics{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		recoveryMiddleware(logger),
		requestLogger(logger),
	)

	e.GET("/health", healthHandler)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	h := &forecastHandler{forecasts: forecasts}
	api := e.Group("/api", apiVersionMiddleware)
	api.GET("/WeatherForecast", h.get)
	api.GET("/WeatherForecast/health", healthHandler)

	handler := otelhttp.NewHandler(e, "telemetry-receiver",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)

	return &Server{
		handler: handler,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		},
		addr: addr,
		diag: diag,
	}
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on the configured address and serves until Shutdown. It
// returns nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.diag.StartingReceiver(ctx)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.diag.StartedReceiver(ctx, ln.Addr().String())

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.diag.StoppedReceiver(ctx)
	if err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
