package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	appsvc "photoshelf/internal/app"
	"photoshelf/internal/bootstrap"
	"photoshelf/internal/pixabay"
	"photoshelf/internal/repository"
	"photoshelf/internal/transport/http/handler"
	"photoshelf/internal/transport/http/middleware"
	"photoshelf/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())
	if len(cfg.App.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.App.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if cfg.App.Pprof {
		pprof.Register(router)
	}

	var (
		revoker appsvc.TokenRevoker
		checker middleware.RevocationChecker
		blobs   appsvc.BlobStore
	)
	if app.Denylist != nil {
		revoker = app.Denylist
		checker = app.Denylist
	}
	if app.Blobs != nil {
		blobs = app.Blobs
	}

	userRepo := repository.NewUserRepository(app.DB)
	authService := appsvc.NewAuthService(userRepo, revoker, appsvc.AuthConfig{
		JWTSecret:     cfg.Auth.JWTSecret,
		JWTExpiration: time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute,
		InitialQuota:  cfg.Upload.InitialQuota,
	})
	photoService := appsvc.NewPhotoService(app.DB, blobs, app.Publisher, cfg.Upload.MaxBytes)
	searchClient := pixabay.NewClient(cfg.Pixabay.BaseURL, cfg.Pixabay.APIKey,
		time.Duration(cfg.Pixabay.TimeoutSeconds)*time.Second)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.IsProduction(),
	})
	photoHandler := handler.NewPhotoHandler(photoService)
	searchHandler := handler.NewSearchHandler(searchClient)

	router.GET("/healthz", healthHandler.Check)

	api := router.Group("/api")
	api.GET("/images", searchHandler.Search)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthCookie(cfg.Auth.JWTSecret, cfg.Auth.CookieName, checker))
	protected.POST("/logout", authHandler.Logout)
	protected.GET("/userdata", authHandler.UserData)
	protected.POST("/upload", photoHandler.Upload)
	protected.POST("/uploadedphotos", photoHandler.List)
	protected.GET("/uploadedphotos", photoHandler.List)
	protected.GET("/photos/:id", photoHandler.Raw)
	protected.DELETE("/photos/:id", photoHandler.Delete)
	protected.GET("/images/delete/:id", photoHandler.Delete)
	protected.GET("/activity", photoHandler.Activity)

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeRouteNotFound, "route not found")
	})

	return router
}
