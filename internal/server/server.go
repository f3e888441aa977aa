package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	"github.com/smallbiznis/woyofal/internal/clock"
	"github.com/smallbiznis/woyofal/internal/config"
	"github.com/smallbiznis/woyofal/internal/observability"
	obslogger "github.com/smallbiznis/woyofal/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/woyofal/internal/observability/metrics"
	obstracing "github.com/smallbiznis/woyofal/internal/observability/tracing"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	"github.com/smallbiznis/woyofal/internal/ratelimit"
	"github.com/smallbiznis/woyofal/internal/receipt"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	receipt.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

const apiPrefix = "/api/woyofal"

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		respondError(c, fmt.Errorf("panic: %v", recovered))
	}))
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:              obsCfg.Debug(),
		ErrorClassifier:    classifyErrorForLog,
		QuietRoutes:        []string{"/health", "/metrics", apiPrefix + "/ping"},
		ExpectedRejections: []string{apiPrefix + "/achat", apiPrefix + "/simulate"},
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.String("addr", addr), zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	loc         *time.Location
	purchaseSvc purchasedomain.Service
	tariffSvc   tariffdomain.Service
	auditSvc    auditdomain.Service
	receipts    receipt.Renderer
	limiter     *ratelimit.PurchaseLimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	PurchaseSvc purchasedomain.Service
	TariffSvc   tariffdomain.Service
	AuditSvc    auditdomain.Service
	Receipts    receipt.Renderer
	Limiter     *ratelimit.PurchaseLimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("http.server"),
		clock:       p.Clock,
		loc:         p.Cfg.Location(),
		purchaseSvc: p.PurchaseSvc,
		tariffSvc:   p.TariffSvc,
		auditSvc:    p.AuditSvc,
		receipts:    p.Receipts,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerHealthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group(apiPrefix)

	// -------- Purchases --------
	api.POST("/achat", s.bindPurchaseRequest(true), s.PurchaseRateLimit(), s.Purchase)
	api.POST("/simulate", s.bindPurchaseRequest(false), s.Simulate)
	api.GET("/achats/:reference", s.GetPurchase)
	api.GET("/achats/:reference/recu", s.GetPurchaseReceipt)

	// -------- Tariffs and meters --------
	api.GET("/tranches", s.ListTranches)
	api.GET("/compteurs/:numero/consommation", s.GetConsumption)

	// -------- Audit --------
	api.GET("/stats/daily", s.GetDailyStats)
	api.GET("/logs", s.ListAuditLogs)

	// -------- Service --------
	api.GET("/status", s.Status)
	api.GET("/ping", s.Ping)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		respondError(c, ErrNotFound)
	})
	s.engine.NoMethod(func(c *gin.Context) {
		respondError(c, ErrMethodNotAllowed)
	})
}

func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		respond(c, http.StatusServiceUnavailable, statutError, "Base de données indisponible", gin.H{"status": "degraded"})
		return
	}
	respondOK(c, msgOK, gin.H{"status": "ok"})
}

func (s *Server) Status(c *gin.Context) {
	respondOK(c, "API Woyofal opérationnelle", gin.H{
		"api_status":  "operational",
		"timestamp":   s.clock.Now().In(s.loc).Format(time.RFC3339),
		"version":     s.cfg.AppVersion,
		"environment": s.cfg.Environment,
	})
}

func (s *Server) Ping(c *gin.Context) {
	respondOK(c, "pong", gin.H{
		"message":     "pong",
		"server_time": s.clock.Now().In(s.loc).Format(time.RFC3339),
	})
}
