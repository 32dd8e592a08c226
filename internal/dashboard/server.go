// Package dashboard serves the roster editing API over HTTP.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/logging"
	"github.com/zulandar/shiftyard/internal/session"
	"github.com/zulandar/shiftyard/internal/subtype"
)

// Defaults applied when StartOpts leaves a field zero.
const (
	DefaultPort        = 8080
	DefaultIdleTimeout = 30 * time.Minute
	DefaultSweep       = "*/5 * * * *"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB          *gorm.DB
	Remote      session.Scheduler
	Engine      *subtype.Engine
	Notifier    session.Notifier
	Port        int
	IdleTimeout time.Duration
	Sweep       string
	Log         *zap.Logger
	Out         io.Writer
}

func (o *StartOpts) applyDefaults() {
	if o.Port <= 0 {
		o.Port = DefaultPort
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.Sweep == "" {
		o.Sweep = DefaultSweep
	}
	if o.Engine == nil {
		o.Engine = subtype.New()
	}
	o.Log = logging.OrNop(o.Log)
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("dashboard: db is required")
	}
	if opts.Remote == nil {
		return fmt.Errorf("dashboard: remote is required")
	}
	opts.applyDefaults()

	reg := newRegistry(session.Deps{
		DB:       opts.DB,
		Remote:   opts.Remote,
		Engine:   opts.Engine,
		Notifier: opts.Notifier,
		Log:      opts.Log,
	}, opts.Log)
	if _, err := startSweeper(ctx, reg, opts.Sweep, opts.IdleTimeout); err != nil {
		return fmt.Errorf("dashboard: sweep schedule %q: %w", opts.Sweep, err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(opts.DB, reg, opts.Log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}
	opts.Log.Info("dashboard listening", zap.Int("port", opts.Port), zap.Duration("idle_timeout", opts.IdleTimeout))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// newRouter builds the gin engine with every route registered.
func newRouter(db *gorm.DB, reg *registry, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	registerRoutes(router, db, reg)
	return router
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
