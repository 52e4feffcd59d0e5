package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edupanel/scheduling-api/pkg/config"
	"github.com/edupanel/scheduling-api/pkg/middleware/requestid"
)

// New builds the process logger: JSON at info level in production,
// console-friendly development output otherwise. LOG_LEVEL and LOG_FORMAT
// override both.
func New(cfg *config.Config) (*zap.Logger, error) {
	base := zap.NewDevelopmentConfig()
	if cfg.Env == config.EnvProduction {
		base = zap.NewProductionConfig()
	}

	if cfg.Log.Format == "console" {
		base.Encoding = "console"
	} else {
		base.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			lvl = zapcore.InfoLevel
		}
		base.Level = zap.NewAtomicLevelAt(lvl)
	}

	base.EncoderConfig.TimeKey = "timestamp"
	base.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return base.Build()
}

// GinMiddleware logs one line per request with method, path, status, latency
// and the request ID when present.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}

		l.Info("http_request", fields...)
	}
}
