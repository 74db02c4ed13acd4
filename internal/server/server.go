package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/fieldworks/wellbill/internal/billingperiod"
	billingdomain "github.com/fieldworks/wellbill/internal/billingperiod/domain"
	"github.com/fieldworks/wellbill/internal/config"
	"github.com/fieldworks/wellbill/internal/debt"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	"github.com/fieldworks/wellbill/internal/distribution"
	"github.com/fieldworks/wellbill/internal/field"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	"github.com/fieldworks/wellbill/internal/irrigation"
	irrigationdomain "github.com/fieldworks/wellbill/internal/irrigation/domain"
	"github.com/fieldworks/wellbill/internal/notification"
	"github.com/fieldworks/wellbill/internal/observability"
	obslogger "github.com/fieldworks/wellbill/internal/observability/logger"
	obsmetrics "github.com/fieldworks/wellbill/internal/observability/metrics"
	obstracing "github.com/fieldworks/wellbill/internal/observability/tracing"
	"github.com/fieldworks/wellbill/internal/owner"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	"github.com/fieldworks/wellbill/internal/settlement"
	settlementdomain "github.com/fieldworks/wellbill/internal/settlement/domain"
	"github.com/fieldworks/wellbill/internal/usage"
	"github.com/fieldworks/wellbill/internal/well"
	welldomain "github.com/fieldworks/wellbill/internal/well/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	observability.Module,
	owner.Module,
	well.Module,
	field.Module,
	irrigation.Module,
	usage.Module,
	distribution.Module,
	billingperiod.Module,
	settlement.Module,
	debt.Module,
	notification.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, m *obsmetrics.Metrics) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware())
	r.Use(obstracing.GinMiddleware())
	r.Use(m.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, m *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(cfg, m)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	periodSvc     billingdomain.Service
	settlementSvc settlementdomain.Service
	debtSvc       debtdomain.Service
	ownerSvc      ownerdomain.Service
	wellSvc       welldomain.Service
	fieldSvc      fielddomain.Service
	irrigationSvc irrigationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	PeriodSvc     billingdomain.Service
	SettlementSvc settlementdomain.Service
	DebtSvc       debtdomain.Service
	OwnerSvc      ownerdomain.Service
	WellSvc       welldomain.Service
	FieldSvc      fielddomain.Service
	IrrigationSvc irrigationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		periodSvc:     p.PeriodSvc,
		settlementSvc: p.SettlementSvc,
		debtSvc:       p.DebtSvc,
		ownerSvc:      p.OwnerSvc,
		wellSvc:       p.WellSvc,
		fieldSvc:      p.FieldSvc,
		irrigationSvc: p.IrrigationSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Owners --------
	api.GET("/owners", s.ListOwners)
	api.POST("/owners", s.CreateOwner)
	api.GET("/owners/:id", s.GetOwnerByID)
	api.DELETE("/owners/:id", s.DeleteOwner)

	// -------- Wells --------
	api.GET("/wells", s.ListWells)
	api.POST("/wells", s.CreateWell)
	api.GET("/wells/:id", s.GetWellByID)
	api.DELETE("/wells/:id", s.DeleteWell)

	// -------- Fields --------
	api.GET("/fields", s.ListFields)
	api.POST("/fields", s.CreateField)
	api.GET("/fields/:id", s.GetFieldByID)
	api.PUT("/fields/:id/ownership", s.SetFieldOwnership)

	// -------- Irrigation logs --------
	api.GET("/irrigation-logs", s.ListIrrigationLogs)
	api.POST("/irrigation-logs", s.CreateIrrigationLog)
	api.DELETE("/irrigation-logs/:id", s.DeleteIrrigationLog)

	// -------- Billing periods --------
	api.GET("/billing-periods", s.ListBillingPeriods)
	api.POST("/billing-periods", s.CreateBillingPeriod)
	api.GET("/billing-periods/:id", s.GetBillingPeriodByID)
	api.DELETE("/billing-periods/:id", s.DeleteBillingPeriod)
	api.POST("/billing-periods/:id/calculate", s.CalculateBillingPeriod)
	api.DELETE("/billing-periods/:id/distributions", s.ClearBillingPeriodDistributions)
	api.POST("/billing-periods/:id/record-payment", s.RecordPeriodPayment)
	api.DELETE("/billing-periods/:id/reverse-payment", s.ReversePeriodPayment)

	// -------- Debts --------
	api.GET("/debts", s.ListDebts)
	api.POST("/debts", s.CreateDebt)
	api.GET("/debts/:id", s.GetDebtByID)
	api.DELETE("/debts/:id", s.DeleteDebt)
	api.POST("/debts/:id/pay", s.PayDebt)
	api.POST("/debts/:id/cancel", s.CancelDebt)
	api.POST("/debts/mark-overdue", s.MarkDebtsOverdue)
}
