package router

import (
	"github.com/cuongbtq/dataset-hub/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// Options tune the router outside of handler dependencies
type Options struct {
	AllowOrigin string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(opts.AllowOrigin))

	authHandler := handler.NewAuthHandler(deps)
	userHandler := handler.NewUserHandler(deps)
	dataSetHandler := handler.NewDataSetHandler(deps)
	generateHandler := handler.NewGenerateHandler(deps)
	catalogHandler := handler.NewCatalogHandler(deps)
	adminHandler := handler.NewAdminHandler(deps)
	proxyHandler := handler.NewProxyHandler(deps)
	healthHandler := handler.NewHealthHandler(deps)

	requireUser := AuthMiddleware(deps.Store, deps.Identity, deps.Logger)

	v1 := r.Group("/api/v1")
	{
		// Public endpoints
		v1.GET("/healthy", healthHandler.Healthy)
		v1.GET("/ready", healthHandler.Ready)
		v1.POST("/signup", authHandler.SignUp)
		v1.POST("/auth", authHandler.Authenticate)
		v1.GET("/public_data_sets", catalogHandler.ListPublicDataSets)
		v1.GET("/visualize/:path", dataSetHandler.Visualize)
		v1.POST("/proxy", proxyHandler.Query)

		authed := v1.Group("", requireUser)
		{
			me := authed.Group("/me")
			{
				me.GET("", userHandler.GetMe)
				me.PATCH("", userHandler.UpdateMe)
				me.DELETE("", userHandler.DeleteMe)
				me.GET("/custom_token", userHandler.GetCustomToken)
			}

			dataSets := authed.Group("/data_sets")
			{
				dataSets.GET("", dataSetHandler.ListDataSets)
				dataSets.POST("", dataSetHandler.CreateDataSet)

				// POST /api/v1/data_sets/generate - start a conversion job
				dataSets.POST("/generate", generateHandler.Generate)

				// GET /api/v1/data_sets/generate/:task_id - poll a conversion job
				dataSets.GET("/generate/:task_id", generateHandler.GenerateStatus)

				dataSets.GET("/:id", dataSetHandler.GetDataSet)
				dataSets.PATCH("/:id", dataSetHandler.UpdateDataSet)
				dataSets.DELETE("/:id", dataSetHandler.DeleteDataSet)
			}

			admin := authed.Group("/admin", AdminMiddleware(deps.Store, deps.Logger))
			{
				admin.GET("/data_sets", adminHandler.ListDataSets)
				admin.GET("/data_sets/export", adminHandler.Export)
				admin.DELETE("/data_sets/:id", adminHandler.DeleteDataSet)
			}
		}
	}

	return r
}
