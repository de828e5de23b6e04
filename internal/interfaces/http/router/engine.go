package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rxsupply/backend/internal/infrastructure/auth"
	"github.com/rxsupply/backend/internal/infrastructure/config"
	"github.com/rxsupply/backend/internal/infrastructure/logger"
	"github.com/rxsupply/backend/internal/interfaces/http/handler"
	"github.com/rxsupply/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineOptions carries everything NewEngine mounts
type EngineOptions struct {
	Batches *handler.BatchHandler
	Health  *handler.HealthHandler
	Logger  *zap.Logger
	HTTP    config.HTTPConfig

	// ServiceName names the server spans; tracing is skipped when TracingEnabled is false
	ServiceName    string
	TracingEnabled bool
	// Meter records HTTP metrics when non-nil
	Meter            metric.Meter
	ProfilingEnabled bool

	// Validator enables bearer authentication and permission checks when non-nil
	Validator middleware.TokenValidator
}

// NewEngine builds the gin engine with the middleware chain and all routes.
// Order: request ID, access log, recovery, security headers, CORS, body
// limit, tracing, metrics, profiling, auth, span enrichment.
func NewEngine(opts EngineOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = opts.HTTP.CORSAllowOrigins
	if len(opts.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = opts.HTTP.CORSAllowMethods
	}
	if len(opts.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = opts.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))

	if opts.HTTP.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodyBytes))
	}
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: opts.ServiceName,
		Enabled:     opts.TracingEnabled,
	}))
	if opts.Meter != nil {
		engine.Use(middleware.HTTPMetrics(opts.Meter))
	}
	engine.Use(middleware.Profiling(opts.ProfilingEnabled, "/health", "/api/v1/health"))

	var read, write gin.HandlerFunc
	if opts.Validator != nil {
		engine.Use(middleware.JWTAuth(middleware.DefaultJWTConfig(opts.Validator, log)))
		read = middleware.RequirePermission(auth.PermissionInventoryRead, auth.PermissionInventoryWrite)
		write = middleware.RequirePermission(auth.PermissionInventoryWrite)
	}
	engine.Use(middleware.SpanAttributes())

	if opts.Health != nil {
		engine.GET("/health", opts.Health.Health)
		engine.GET("/api/v1/health", opts.Health.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	if opts.Batches != nil {
		r.Register(InventoryRoutes(opts.Batches, read, write))
	}
	r.Setup()

	return engine
}
