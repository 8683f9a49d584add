package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	versionQueryParam       = "api-version"
	versionHeader           = "X-Api-Version"
	supportedVersionsHeader = "Api-Supported-Versions"
	defaultAPIVersion       = "1.0"
	apiVersionContextKey    = "api_version"
)

// SupportedVersions lists the API versions served under /api.
var SupportedVersions = []string{defaultAPIVersion}

// apiVersionMiddleware resolves the requested version from the api-version
// query parameter or the x-api-version header, defaulting to 1.0. Requests
// for any other version are rejected with 400.
func apiVersionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(supportedVersionsHeader, strings.Join(SupportedVersions, ", "))

		requested := c.QueryParam(versionQueryParam)
		if requested == "" {
			requested = c.Request().Header.Get(versionHeader)
		}
		version := normalizeVersion(requested)
		if version == "" {
			version = defaultAPIVersion
		}

		if !slices.Contains(SupportedVersions, version) {
			return badRequest(c, "unsupported API version",
				fmt.Sprintf("API version %q is not supported; supported versions: %s", requested, strings.Join(SupportedVersions, ", ")))
		}

		c.Set(apiVersionContextKey, version)
		return next(c)
	}
}

// normalizeVersion turns "1" and "v1" into "1.0".
func normalizeVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v != "" && !strings.Contains(v, ".") {
		v += ".0"
	}
	return v
}

// recoveryMiddleware turns a handler panic into a logged 500.
func recoveryMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(c.Request().Context(), "panic recovered",
						slog.Any("panic", rec),
						slog.String("http.route", c.Path()),
						slog.String("stack", string(debug.Stack())),
					)
					err = internalError(c, "unexpected error")
				}
			}()
			return next(c)
		}
	}
}

// requestLogger logs one line per request at debug level, or warn for 5xx.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelDebug
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.LogAttrs(c.Request().Context(), level, "http request",
				slog.String("http.request.method", v.Method),
				slog.String("url.path", v.URI),
				slog.Int("http.response.status_code", v.Status),
				slog.Int64("duration_ms", v.Latency.Milliseconds()),
				slog.String("request.id", v.RequestID),
			)
			return nil
		},
	})
}
