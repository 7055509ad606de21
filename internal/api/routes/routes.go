// internal/api/routes/routes.go
package routes

import (
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"

	"wte-api-server/config"
	"wte-api-server/internal/api/handlers"
	"wte-api-server/internal/api/middleware"
	"wte-api-server/internal/auth"
	"wte-api-server/internal/reports"
	"wte-api-server/internal/socket"
)

// Dependencies are the components the router wires into handlers.
type Dependencies struct {
	Config  config.Config
	Auth    *auth.Service
	Tokens  *auth.TokenService
	Reports *reports.Service
	Hub     *socket.Hub
	DB      handlers.Pinger
	Started time.Time
}

// SetupRouter builds the gin engine serving the /api routes.
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(gin.LoggerWithFormatter(logFormat))
	router.Use(gin.CustomRecovery(recoverJSON))
	router.Use(cors.New(corsConfig(deps.Config.CORS)))

	userHandler := &handlers.UserHandler{Auth: deps.Auth}
	siteHandler := &handlers.SiteHandler{Reports: deps.Reports}
	wasteHandler := &handlers.WasteHandler{Reports: deps.Reports}
	healthHandler := &handlers.HealthHandler{DB: deps.DB, Started: deps.Started}
	webSocketHandler := &handlers.WebSocketHandler{
		Hub:         deps.Hub,
		Tokens:      deps.Tokens,
		CheckOrigin: originChecker(deps.Config.CORS.AllowedOrigins),
	}

	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/ws", webSocketHandler.ServeWs)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", userHandler.Register)
			authRoutes.POST("/login", userHandler.Login)
		}

		api.GET("/sites", siteHandler.GetAllSites)
		api.POST("/waste", wasteHandler.CreateReport)

		admin := api.Group("/waste")
		admin.Use(middleware.Authenticate(deps.Tokens))
		{
			admin.GET("", wasteHandler.GetAllReports)
			admin.GET("/summary", wasteHandler.GetSummary)
			admin.GET("/:id", wasteHandler.GetReportByID)
			admin.PATCH("/:id/status", wasteHandler.UpdateStatus)
			if deps.Reports.PhotosEnabled() {
				admin.POST("/:id/photo", wasteHandler.UploadPhoto)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found", "path": c.Request.URL.Path})
	})

	return router
}

func logFormat(p gin.LogFormatterParams) string {
	requestID, _ := p.Keys["request_id"].(string)
	return fmt.Sprintf("[GIN] %s | %3d | %13v | %15s | %-7s %s | %s\n",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		p.Path,
		requestID,
	)
}

func recoverJSON(c *gin.Context, recovered any) {
	log.Printf("[%s] panic serving %s %s: %v", c.GetString("request_id"), c.Request.Method, c.Request.URL.Path, recovered)
	handlers.RespondError(c, goerrors.New(fmt.Sprintf("panic: %v", recovered), goerrors.CategoryInternal).
		WithCode(goerrors.CodeInternal))
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}

// originChecker applies the CORS origins to WebSocket handshakes.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
