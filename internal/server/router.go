package server

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"standupbot/internal/domain"
	"standupbot/internal/standup"
)

// Service is the standup surface the HTTP API exposes.
type Service interface {
	Prepare(ctx context.Context, req standup.Request) (standup.Prepared, error)
	Stream(ctx context.Context, p standup.Prepared, w io.Writer) (standup.Result, error)
	TestConnection(ctx context.Context, creds domain.Credentials) (int, error)
	History(ctx context.Context, userEmail string, limit int) ([]domain.SavedStandup, error)
}

// Defaults fill in request fields a client leaves out.
type Defaults struct {
	PublicHolidays []string
	Timezone       string
	// OffsetMinutes returns the default UTC offset at the given instant.
	OffsetMinutes func(at time.Time) int
}

func NewRouter(appEnv string, svc Service, defaults Defaults) *gin.Engine {
	if appEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(accessLog())

	h := &Handlers{svc: svc, defaults: defaults, now: time.Now}

	r.GET("/healthz", h.Healthz)
	api := r.Group("/api")
	api.POST("/generate", h.Generate)
	api.POST("/test-jira", h.TestJira)
	api.GET("/history", h.History)

	return r
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("component", "http").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
