package api

import (
	"net/http"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/config"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/BadgersMC/LumaGuilds-sub008/vault"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter builds the full engine: health and metrics at the root, the
// vault endpoints and the viewer socket under cfg.Prefix.
func SetupRouter(manager *vault.Manager, txlog store_interface.TransactionLog, cfg config.ServerConfig, logger *log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.Default()
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger.WithPrefix("http")))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	SetupVaultRouter(manager, txlog, cfg.Prefix, engine)
	SetupViewerRouter(manager, ViewerConfig{
		Rate:   cfg.ViewerRate,
		Burst:  cfg.ViewerBurst,
		Logger: logger,
	}, cfg.Prefix, engine)
	return engine
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
