package httpapi

import (
	"context"
	"net/http"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
	"github.com/labstack/echo/v4"
)

// ForecastService produces the forecast response body.
type ForecastService interface {
	GetForecasts(ctx context.Context) []domain.Forecast
}

type forecastHandler struct {
	forecasts ForecastService
}

// get serves GET /api/WeatherForecast.
func (h *forecastHandler) get(c echo.Context) error {
	forecasts := h.forecasts.GetForecasts(c.Request().Context())
	if forecasts == nil {
		forecasts = []domain.Forecast{}
	}
	return c.JSON(http.StatusOK, forecasts)
}

func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
