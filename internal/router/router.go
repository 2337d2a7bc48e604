package router

import (
	"time"

	"cortecaja/internal/config"
	"cortecaja/internal/handler"
	"cortecaja/internal/infra"
	"cortecaja/internal/middleware"
	"cortecaja/internal/repository"
	"cortecaja/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	corteRepo := repository.NewCorteRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	negocioRepo := repository.NewNegocioRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	ledgerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	agregador := service.NewAgregador(
		ventaRepo, ledgerCB,
		cfg.LedgerRetryAttempts,
		time.Duration(cfg.LedgerRetryBackoffMS)*time.Millisecond,
	)
	rangos := service.NewRangoResolver(corteRepo)
	locks := infra.NewRedisLock(rdb, time.Duration(cfg.LockTTLSecs)*time.Second)
	corteSvc := service.NewCorteService(corteRepo, negocioRepo, rangos, agregador, locks)

	// ── Handlers ─────────────────────────────────────────────────────────────
	corteH := handler.NewCorteHandler(corteSvc, cfg.RecientesLimiteMax, cfg.HistorialLimiteMax)
	ventasH := handler.NewVentasHandler(ventaRepo)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", corteH.Abrir)
			caja.GET("/resumen", corteH.Resumen)
			caja.POST("/corte", corteH.Cerrar)
			caja.GET("/historial", corteH.Historial)
		}

		v1.GET("/ventas", ventasH.Listar)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
