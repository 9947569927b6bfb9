package middleware

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

// RequestLogger writes one structured line per request. Wire it after
// echoMw.RequestID so the id is available.
func RequestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelWarn
			}
			log.LogAttrs(context.Background(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", loggableURI(c.Request())),
				slog.Int("status", v.Status),
				slog.Int64("duration_ms", v.Latency.Milliseconds()),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}
