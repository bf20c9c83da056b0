// Package accesslog は zap によるアクセスログ。
// 業務ログは従来どおり log.Printf("[INFO] ...") で出す。
package accesslog

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"RACE-backend/internal/platform/auth"
)

type Config struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// New: release は JSON、dev はコンソール向けの既定値
func New(cfg Config, mode string) (*zap.Logger, error) {
	var zc zap.Config
	switch {
	case cfg.Format == "json", cfg.Format == "" && mode == "release":
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
	}
	switch cfg.Level {
	case "debug":
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zc.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zc.Build()
}

// Middleware は gin.Logger の代わり。認証済みなら利用者も載せる
func Middleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		// URL にトークンを含むルート（メンター承認リンク）はパターンだけ残す
		if route := c.FullPath(); strings.Contains(route, ":token") {
			path, query = route, ""
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if user := c.GetString(auth.CtxUserIDKey); user != "" {
			fields = append(fields, zap.String("user", user), zap.String("role", c.GetString(auth.CtxRoleKey)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
