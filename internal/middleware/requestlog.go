package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// CtxLogger holds the request-scoped logger.
const CtxLogger = "logger"

// RequestLogger assigns a request id (keeping a caller-supplied one),
// stores a logger tagged with it in the context and logs one line per
// request.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, rid)
			reqLog := log.With(zap.String("request_id", rid))
			c.Set(CtxLogger, reqLog)

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			switch status := c.Response().Status; {
			case status >= 500:
				reqLog.Error("request", append(fields, zap.Error(err))...)
			case status >= 400:
				reqLog.Warn("request", fields...)
			default:
				reqLog.Info("request", fields...)
			}
			return nil
		}
	}
}

// LoggerFrom returns the request logger or fallback.
func LoggerFrom(c echo.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := c.Get(CtxLogger).(*zap.Logger); ok {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}
