package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	"github.com/smallbiznis/bonos/internal/config"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
	"github.com/smallbiznis/bonos/internal/observability"
	obsmiddleware "github.com/smallbiznis/bonos/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bonos/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bonos/internal/observability/tracing"
	partnerdomain "github.com/smallbiznis/bonos/internal/partner/domain"
	"github.com/smallbiznis/bonos/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	useJSONFieldNames()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, srv *Server) {
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", httpSrv.Addr))
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	log           *zap.Logger
	lifecycle     lifecycledomain.Service
	catalogSvc    catalogdomain.Service
	partnerSvc    partnerdomain.Service
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	verifyLimiter *ratelimit.VerifyLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Log           *zap.Logger
	Lifecycle     lifecycledomain.Service
	CatalogSvc    catalogdomain.Service
	PartnerSvc    partnerdomain.Service
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service      `optional:"true"`
	VerifyLimiter *ratelimit.VerifyLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		log:           p.Log.Named("http.server"),
		lifecycle:     p.Lifecycle,
		catalogSvc:    p.CatalogSvc,
		partnerSvc:    p.PartnerSvc,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		verifyLimiter: p.VerifyLimiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", ActorContext())

	// -------- Catalog --------
	api.GET("/catalog", s.authorizeAction(authorization.ObjectCatalog, authorization.ActionCatalogView), s.ListCatalog)

	// -------- Allocations --------
	api.GET("/allocations", s.ListAllocations)
	api.PUT("/allocations", s.SyncAllocations)

	// -------- Vouchers --------
	api.POST("/vouchers", s.IssueVoucher)
	api.POST("/vouchers/batch", s.IssueVoucherBatch)
	api.GET("/vouchers", s.ListVouchers)
	api.GET("/vouchers/:id", s.GetVoucher)
	api.POST("/vouchers/:id/rejection", s.RejectVoucher)

	// -------- Transitions --------
	api.POST("/invoices/:invoice/activations", s.ActivateByInvoice)
	api.POST("/masters/activations", s.ActivateByMaster)
	api.POST("/redemptions", s.RedeemVouchers)

	// -------- QR --------
	api.GET("/verify/:token", s.VerifyRateLimit(), s.VerifyToken)
	api.POST("/qr/invoices/:invoice", s.MintInvoiceToken)
	api.POST("/qr/masters/:master", s.MintMasterToken)

	// -------- Partners --------
	view := s.authorizeAction(authorization.ObjectPartner, authorization.ActionPartnerView)
	api.GET("/partners/:id", view, s.GetPartner)
	api.GET("/partners/:id/customers", view, s.ListPartnerCustomers)
	api.GET("/customers/:id", view, s.GetCustomer)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/v1/admin", ActorContext())

	admin.POST("/expirations", s.ExpireVouchers)

	manage := s.authorizeAction(authorization.ObjectPartner, authorization.ActionPartnerManage)
	admin.POST("/partners", manage, s.UpsertPartner)
	admin.PUT("/partners/:id", manage, s.UpsertPartner)
	admin.POST("/customers", manage, s.UpsertCustomer)
	admin.PUT("/customers/:id", manage, s.UpsertCustomer)

	if s.auditSvc != nil {
		admin.GET("/audit-logs", s.authorizeAction(authorization.ObjectAudit, authorization.ActionAuditView), s.ListAuditLogs)
	}
}
