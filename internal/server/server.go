package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/groundstone/terravest/internal/config"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	investmentdomain "github.com/groundstone/terravest/internal/investment/domain"
	"github.com/groundstone/terravest/internal/observability"
	obsmiddleware "github.com/groundstone/terravest/internal/observability/logger"
	obsmetrics "github.com/groundstone/terravest/internal/observability/metrics"
	obstracing "github.com/groundstone/terravest/internal/observability/tracing"
	portfoliodomain "github.com/groundstone/terravest/internal/portfolio/domain"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
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

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
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
	identitySvc   identitydomain.Service
	projectSvc    projectdomain.Service
	investmentSvc investmentdomain.Service
	portfolioSvc  portfoliodomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	IdentitySvc   identitydomain.Service
	ProjectSvc    projectdomain.Service
	InvestmentSvc investmentdomain.Service
	PortfolioSvc  portfoliodomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		identitySvc:   p.IdentitySvc,
		projectSvc:    p.ProjectSvc,
		investmentSvc: p.InvestmentSvc,
		portfolioSvc:  p.PortfolioSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Projects --------
	api.GET("/projects", s.AuthRequired(), s.ListProjects)

	// -------- Investments --------
	api.POST("/investments", s.AuthRequired(), s.CreateInvestment)
	api.GET("/investments", s.AuthRequired(), s.GetPortfolio)
}
