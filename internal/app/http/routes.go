package routes

import (
	"net/http"
	"time"

	"tontine-app/config"
	accessapi "tontine-app/internal/api/access"
	adminapi "tontine-app/internal/api/admin"
	authapi "tontine-app/internal/api/auth"
	carnetsapi "tontine-app/internal/api/carnets"
	"tontine-app/internal/api/users"
	"tontine-app/internal/app/http/middleware"
	"tontine-app/internal/app/ledger"
	"tontine-app/internal/domain/access"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewEngine builds the gin engine with recovery, request logging and CORS.
// Only trustedProxies may set the client IP through forwarding headers;
// with none, the socket peer is the client.
func NewEngine(log *zap.Logger, trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	// CORS before routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return r, nil
}

type Deps struct {
	Log    *zap.Logger
	Ledger *ledger.Service
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	log := deps.Log

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	throttle := middleware.NewLoginThrottle(config.LOGIN_RATE_PER_MINUTE)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.POST("/login", throttle.Middleware(), authapi.Login)

	if config.GoogleEnabled() {
		public.GET("/auth/google", authapi.GoogleStart)
		public.GET("/auth/google/callback", authapi.GoogleCallback)
	}

	// the gate answers anonymous callers too: they get a login redirect
	r.POST("/access/check", middleware.OptionalAuth(log), accessapi.Check(log))

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(log))
	auth.GET("/me", users.GetCurrentUser)
	auth.POST("/change-password", middleware.SanitizeAndCleanInputMiddleware(), authapi.ChangePassword)

	carnets := carnetsapi.NewHandler(deps.Ledger, log)
	auth.GET("/carnets", carnets.List)
	auth.POST("/carnets", middleware.SanitizeAndCleanInputMiddleware(), carnets.Create)
	auth.GET("/carnets/:id", carnets.Get)
	auth.POST("/carnets/:id/mark-day", middleware.SanitizeAndCleanInputMiddleware(), carnets.MarkDay)
	auth.GET("/carnets/:id/transactions", carnets.Transactions)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(log), middleware.RequireRoles(log, access.RoleAdminSFD, access.RoleAdminPlateforme))
	admin.GET("/users", adminapi.ListAllUsers)
	admin.POST("/users", middleware.SanitizeAndCleanInputMiddleware(), adminapi.CreateUser)
}
