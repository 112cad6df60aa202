package router

import (
	"time"

	"belezapos/internal/config"
	"belezapos/internal/handler"
	"belezapos/internal/middleware"
	"belezapos/internal/offline"
	"belezapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// New assembles the HTTP surface: middleware chain, route groups and the
// role restrictions on top of the capability gate enforced in the service.
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	coord *offline.Coordinator,
	caixaSvc service.CaixaService,
	authSvc service.AuthService,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(cfg.Domain),
		middleware.ErrorHandler(),
		middleware.RateLimiter(300, time.Minute),
	)

	healthHandler := handler.NewHealthHandler(db, rdb)
	r.GET("/health", healthHandler.Check)

	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/usuarios",
			middleware.JWTAuth(cfg.JWTSecret),
			middleware.RequirePapel("administrador"),
			authHandler.CriarUsuario)
	}

	caixaHandler := handler.NewCaixaHandler(caixaSvc)
	caixa := r.Group("/v1/caixa", middleware.JWTAuth(cfg.JWTSecret))
	{
		caixa.POST("/abrir", caixaHandler.Abrir)
		caixa.POST("/fechar", caixaHandler.Fechar)
		caixa.POST("/movimento", caixaHandler.Movimento)
		caixa.POST("/sangria", caixaHandler.Sangria)
		caixa.POST("/reforco", caixaHandler.Reforco)
		caixa.POST("/despesa", caixaHandler.Despesa)
		caixa.POST("/pagamento", caixaHandler.Pagamento)

		caixa.GET("/atual", caixaHandler.Atual)
		caixa.GET("/totais", caixaHandler.Totais)
		caixa.GET("/movimentos", caixaHandler.Movimentos)
		caixa.GET("/historial", caixaHandler.Historico)
		caixa.GET("/:id/fechamento", caixaHandler.Fechamento)
	}

	syncHandler := handler.NewSyncHandler(coord)
	sync := r.Group("/v1/sync", middleware.JWTAuth(cfg.JWTSecret))
	{
		sync.GET("/status", syncHandler.Status)
		sync.POST("/refresh", syncHandler.Refresh)
	}

	return r
}
