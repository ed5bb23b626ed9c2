package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/billing"
	billingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/billing/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/clock"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/config"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/meter"
	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/observability"
	obsmiddleware "github.com/AlexVasiliu-dev/rentalmanager/internal/observability/logger"
	obsmetrics "github.com/AlexVasiliu-dev/rentalmanager/internal/observability/metrics"
	obstracing "github.com/AlexVasiliu-dev/rentalmanager/internal/observability/tracing"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/ocr"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/property"
	propertydomain "github.com/AlexVasiliu-dev/rentalmanager/internal/property/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/ratelimit"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/reading"
	readingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/reading/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/reconciler"
	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	clock.Module,
	db.Module,
	ratelimit.Module,
	ocr.Module,
	property.Module,
	meter.Module,
	billing.Module,
	reading.Module,
	reconciler.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ActorMiddleware())
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	clock       clock.Clock
	propertySvc propertydomain.Service
	meterSvc    meterdomain.Service
	readingSvc  readingdomain.Service
	billingSvc  billingdomain.Service
	reconciler  *reconciler.Reconciler
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	Clock       clock.Clock
	PropertySvc propertydomain.Service
	MeterSvc    meterdomain.Service
	ReadingSvc  readingdomain.Service
	BillingSvc  billingdomain.Service
	Reconciler  *reconciler.Reconciler
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		clock:       p.Clock,
		propertySvc: p.PropertySvc,
		meterSvc:    p.MeterSvc,
		readingSvc:  p.ReadingSvc,
		billingSvc:  p.BillingSvc,
		reconciler:  p.Reconciler,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Properties --------
	v1.POST("/properties", s.CreateProperty)
	v1.GET("/properties", s.ListProperties)
	v1.GET("/properties/:id", s.GetPropertyByID)

	// -------- Leases --------
	v1.POST("/leases", s.CreateLease)
	v1.GET("/leases/:id", s.GetLeaseByID)

	// -------- Meters --------
	v1.POST("/meters", s.CreateMeter)
	v1.GET("/meters", s.ListMeters)
	v1.GET("/meters/:id", s.GetMeterByID)
	v1.PATCH("/meters/:id/price", s.UpdateMeterPrice)

	// -------- Readings --------
	v1.POST("/readings", s.IngestReading)
	v1.GET("/readings", s.ListReadings)
	v1.POST("/readings/:id/verify", s.VerifyReading)

	// -------- Bills --------
	v1.GET("/bills", s.ListBills)
	v1.GET("/bills/:id", s.GetBillByID)
	v1.POST("/bills/:id/pay", s.PayBill)

	// -------- Reconciliation --------
	v1.POST("/reconciliation/run", s.RunReconciliation)
}
