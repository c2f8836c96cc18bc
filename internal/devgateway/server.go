package devgateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/evcraddock/fieldtrack/internal/db"
	"github.com/evcraddock/fieldtrack/internal/gateway"
	"github.com/evcraddock/fieldtrack/internal/logging"
)

const requestTypeKey = logging.RequestTypeKey

// maxBodyBytes bounds a request body; image uploads are the largest.
const maxBodyBytes = 16 << 20

// Server is the gateway HTTP server.
type Server struct {
	store     *Store
	router    *gin.Engine
	metrics   *metrics
	events    Publisher
	cache     IdentityCache
	publicURL string
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithPublisher sends domain events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.events = p }
}

// WithIdentityCache caches identity lookups in c.
func WithIdentityCache(c IdentityCache) Option {
	return func(s *Server) { s.cache = c }
}

// WithPublicURL sets the prefix of returned image URLs.
func WithPublicURL(u string) Option {
	return func(s *Server) { s.publicURL = u }
}

// WithClock overrides the time used when a request carries none.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a gateway server on an open, migrated database.
func NewServer(database *sql.DB, opts ...Option) *Server {
	s := &Server{
		store:   NewStore(database),
		metrics: newMetrics(),
		events:  nopPublisher{},
		cache:   nopCache{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinRequestLogger(), s.metrics.middleware(), errorReporter())

	r.POST("/", s.handleExec)
	r.GET("/images/:clientId", s.handleImage)
	r.GET("/health", s.handleHealth(database))
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// PutEmployee adds or updates an employee through the server's identity cache.
func (s *Server) PutEmployee(ctx context.Context, id, name string, role gateway.Role) error {
	return SaveEmployee(ctx, s.store, s.cache, id, name, role)
}

// Store returns the server's store.
func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) handleHealth(database *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"details": gin.H{"database": "unavailable"},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) handleImage(c *gin.Context) {
	mime, data, err := s.store.Image(c.Request.Context(), c.Param("clientId"))
	if errors.Is(err, ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, mime, data)
}

// Run opens the database, connects the optional Kafka, Redis and Sentry
// integrations and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	path := cfg.DBPath
	if path == "" {
		var err error
		path, err = db.DefaultGatewayPath()
		if err != nil {
			return err
		}
	}

	database, err := db.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			slog.Warn("closing database", "error", cerr)
		}
	}()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var opts []Option
	if cfg.PublicURL != "" {
		opts = append(opts, WithPublicURL(cfg.PublicURL))
	}

	if cfg.SentryDSN != "" {
		if err := initSentry(cfg.SentryDSN, cfg.Env); err != nil {
			return err
		}
		defer flushSentry()
		slog.Info("sentry enabled", "env", cfg.Env)
	}

	if cfg.KafkaBroker != "" {
		pub, err := NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		if err != nil {
			sentry.CaptureException(err)
			return err
		}
		defer func() {
			if cerr := pub.Close(); cerr != nil {
				slog.Warn("closing kafka writer", "error", cerr)
			}
		}()
		opts = append(opts, WithPublisher(pub))
		slog.Info("kafka events enabled", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	}

	if cfg.RedisHost != "" {
		cache, err := NewRedisCache(cfg.RedisHost, cfg.RedisPassword)
		if err != nil {
			sentry.CaptureException(err)
			return err
		}
		defer func() {
			if cerr := cache.Close(); cerr != nil {
				slog.Warn("closing redis", "error", cerr)
			}
		}()
		opts = append(opts, WithIdentityCache(cache))
		slog.Info("redis identity cache enabled", "host", cfg.RedisHost)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewServer(database, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", srv.Addr, "db", path)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("gateway shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
