package http

import (
	"context"
	_ "embed"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rgoncalves/marketdash/internal/auth"
	"github.com/rgoncalves/marketdash/internal/config"
	"github.com/rgoncalves/marketdash/internal/http/handlers"
	"github.com/rgoncalves/marketdash/internal/http/middlewares"
	"github.com/rgoncalves/marketdash/internal/observability"
	"github.com/rgoncalves/marketdash/internal/repo/postgres"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

//go:embed docs/openapi.yaml
var openAPISpec []byte

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config, reg *prometheus.Registry) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("marketdash"))

	var prom *observability.Prom

	if reg != nil {
		prom = observability.NewProm(reg)
		r.Use(prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// docs
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", func(ctx *gin.Context) {
		ctx.Data(200, "application/yaml", openAPISpec)
	})

	// wire up repositories and handlers

	usersRepo := postgres.NewUsersRepo(pool)
	tablesRepo := postgres.NewTablesRepo(pool, cfg.DashboardTables)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	authMw := middlewares.NewAuthMiddleware(jwtManager)

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, prom)
	usersHandler := handlers.NewUsersHandler(usersRepo, prom)
	tablesHandler := handlers.NewTablesHandler(tablesRepo, prom)

	api := r.Group("/api")

	api.POST("/users", authHandler.Register)
	api.POST("/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(authMw.RequireAuth())

	protected.GET("/users", usersHandler.ListUsers)
	protected.PUT("/users/:id", usersHandler.UpdateUser)
	protected.DELETE("/users/:id", usersHandler.DeleteUser)
	protected.GET("/fetch_table", tablesHandler.FetchTable)

	return r
}
