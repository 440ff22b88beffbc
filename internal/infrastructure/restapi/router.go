package restapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"satotrack/internal/config"
)

// SetupRouter builds the Gin engine with middleware, the API v1 group and
// the operational endpoints.
func SetupRouter(handler *WalletHandler, cfg *config.Config, zapLogger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"}
	router.Use(cors.New(corsConfig))

	router.Use(ZapLoggerMiddleware(zapLogger))
	router.Use(gin.Recovery())

	router.GET("/health", handler.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Swagger.Enabled {
		path := cfg.Swagger.Path
		if path == "" {
			path = "/swagger"
		}
		router.GET(path+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := router.Group("/api/v1")
	v1.Use(handler.APIKeyMiddleware())
	{
		v1.GET("/wallets", handler.ListWalletsHandler)
		v1.POST("/wallets", handler.AddWalletHandler)
		v1.GET("/wallets/:id", handler.GetWalletHandler)
		v1.PATCH("/wallets/:id", handler.RenameWalletHandler)
		v1.DELETE("/wallets/:id", handler.RemoveWalletHandler)
		v1.POST("/wallets/:id/refresh", handler.RefreshWalletHandler)
		v1.GET("/wallets/:id/transactions", handler.ListTransactionsHandler)

		v1.GET("/primary-wallet", handler.GetPrimaryWalletHandler)
		v1.PUT("/primary-wallet", handler.SetPrimaryWalletHandler)

		v1.GET("/preferences", handler.GetPreferencesHandler)
		v1.PUT("/preferences", handler.SetPreferencesHandler)

		v1.GET("/notifications", handler.ListNotificationsHandler)

		v1.POST("/session/signout", handler.SignOutHandler)
	}

	return router
}
