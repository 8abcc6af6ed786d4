package gateway

import (
	"context"
	"time"

	"github.com/dux-project/dux/common/api"
	"github.com/dux-project/dux/common/metrics"
	"github.com/dux-project/dux/common/util"
	"github.com/dux-project/dux/scan"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const diskSpaceInterval = 30 * time.Second

// Config configures the HTTP gateway.
type Config struct {
	Endpoint       string
	OriginsAllowed []string
}

// MustServe serves the session over HTTP until ctx is done. The available space of
// the file system of the last local scan is refreshed periodically.
func MustServe(ctx context.Context, session *Session, config Config) {
	go util.ScheduleNow(ctx, func() error {
		return recordDiskSpace(session)
	}, diskSpaceInterval, "Failed to refresh disk space")

	api.MustServe(ctx, config.Endpoint, Routes(session), api.RouterOption{
		OriginsAllowed: config.OriginsAllowed,
	})
}

func recordDiskSpace(session *Session) error {
	path := session.DiskPath()
	if len(path) == 0 {
		return nil
	}

	space, err := scan.GetDiskSpace(path)
	if err != nil {
		return errors.WithMessage(err, "failed to get disk space")
	}

	metrics.RecordDiskAvailable(space.Available)

	return nil
}

// Routes returns the route factory of the gateway API.
func Routes(session *Session) api.RouteFactory {
	return func(router *gin.Engine) {
		router.Use(recordRequest)

		router.GET("/metrics", gin.WrapH(metrics.Handler()))

		c := controller{session}

		scanApi := router.Group("/api")
		scanApi.POST("/scan", api.Wrap(c.startLocalScan))
		scanApi.POST("/scan/remote", api.Wrap(c.startRemoteScan))
		scanApi.POST("/scan/cancel", api.Wrap(c.cancelScan))
		scanApi.GET("/progress", api.Wrap(c.getProgress))
		scanApi.GET("/treemap", api.Wrap(c.getTreemap))
		scanApi.GET("/search", api.Wrap(c.search))
		scanApi.GET("/export", c.export)
		scanApi.DELETE("/node", api.Wrap(c.removeNode))
		scanApi.GET("/disk", api.Wrap(c.getDiskSpace))
		scanApi.GET("/stats", api.Wrap(c.getCategoryStats))
		scanApi.GET("/duplicates", api.Wrap(c.findDuplicates))

		profileApi := router.Group("/api/profiles")
		profileApi.GET("", api.Wrap(c.listProfiles))
		profileApi.POST("", api.Wrap(c.putProfile))
		profileApi.POST("/test", api.Wrap(c.testProfile))
	}
}

func recordRequest(c *gin.Context) {
	c.Next()
	metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status())
}
