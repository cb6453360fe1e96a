package internal

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/ptms/internal/handler"
	"github.com/raids-lab/ptms/internal/middleware"
)

const (
	APIPrefix       = "/api"
	APIPrefixV1     = "/api/v1"
	APIPrefixAdmin  = "/api/v1/admin"
	HealthCheckPath = "/v1/healthz"
)

// Register builds the gin engine with every registered manager mounted.
func Register(registerConfig *handler.RegisterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		r.Use(gin.Logger())
	}

	// Enable CORS for http://localhost:XXXX in debug mode
	if gin.Mode() == gin.DebugMode {
		if fe := os.Getenv("PTMS_FE_PORT"); fe != "" {
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{"http://localhost:" + fe}
			corsConf.AddAllowHeaders("Authorization")
			r.Use(cors.New(corsConf))
		}
	}

	// Kubernetes health check
	r.GET(HealthCheckPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	metricsMgr := handler.NewMetricsMgr(registerConfig)
	r.GET(registerConfig.Config.MetricsPath, metricsMgr.GetMetrics)

	registerRoutes(r, registerConfig)
	return r
}

func registerRoutes(r *gin.Engine, registerConfig *handler.RegisterConfig) {
	managers := registerManagers(registerConfig)

	///////////////////////////////////////
	//// Public routers, no need login ////
	///////////////////////////////////////

	publicRouter := r.Group(APIPrefix)

	///////////////////////////////////////
	//// Protected routers, need login ////
	///////////////////////////////////////

	protectedRouter := r.Group(APIPrefixV1)
	protectedRouter.Use(middleware.AuthProtected(registerConfig.TokenMgr, registerConfig.DB))

	///////////////////////////////////////
	//// Admin routers, need admin role ///
	///////////////////////////////////////

	adminRouter := r.Group(APIPrefixAdmin)
	adminRouter.Use(middleware.AuthProtected(registerConfig.TokenMgr, registerConfig.DB), middleware.AuthAdmin())

	for _, mgr := range managers {
		mgr.RegisterPublic(publicRouter.Group("/" + mgr.GetName()))
		mgr.RegisterProtected(protectedRouter.Group("/" + mgr.GetName()))
		mgr.RegisterAdmin(adminRouter.Group("/" + mgr.GetName()))
	}
}
