package cmd

import (
	"database/sql"
	"net"

	"github.com/chronosync/chronosync-api/app/controller"
	"github.com/chronosync/chronosync-api/app/middleware"
	"github.com/chronosync/chronosync-api/app/oauth"
	"github.com/chronosync/chronosync-api/app/service"
	"github.com/chronosync/chronosync-api/config"
	"github.com/chronosync/chronosync-api/migrations"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Run database migrations and start the HTTP API server.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("mysql"); err != nil {
		logrus.WithError(err).Fatal("Failed to set migration dialect")
	}
	if err := goose.Up(db, "."); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	tokens, err := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create token service")
	}
	passwords := service.NewPasswordHasher()
	authService := service.NewAuthService(db, tokens, passwords, cfg)
	usageService := service.NewAppUsageService(db)
	rgpdService := service.NewRGPDService(db)
	providers := oauth.NewRegistry(cfg.OAuth)

	startHTTPServer(cfg, db, authService, usageService, rgpdService, providers)
}

func startHTTPServer(cfg *config.Config, db *sql.DB, authService *service.AuthService, usageService *service.AppUsageService, rgpdService *service.RGPDService, providers oauth.Registry) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.SecurityHeaders)

	authController := controller.NewAuthController(authService, providers, cfg)
	usageController := controller.NewAppUsageController(usageService)
	rgpdController := controller.NewRGPDController(rgpdService)
	healthController := controller.NewHealthController(db)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	api := e.Group("/api")
	api.GET("/health", healthController.Health)

	auth := api.Group("/auth")
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
	auth.GET("/:provider/login", authController.OAuthLogin)
	auth.GET("/:provider/callback", authController.OAuthCallback)
	auth.POST("/password-reset/request", authController.RequestPasswordReset)
	auth.POST("/password-reset/confirm", authController.ConfirmPasswordReset)
	auth.GET("/profile", authController.Profile, authMiddleware.RequireAuth)

	usage := api.Group("/usage")
	usage.Use(authMiddleware.RequireAuth)
	usage.GET("/daily", usageController.Daily)
	usage.GET("/weekly", usageController.Weekly)
	usage.GET("/monthly", usageController.Monthly)
	usage.GET("/yearly", usageController.Yearly)
	usage.GET("/custom", usageController.Custom)
	usage.POST("/sessions", usageController.RecordSession)

	rgpd := api.Group("/rgpd")
	rgpd.Use(authMiddleware.RequireAuth)
	rgpd.GET("/export", rgpdController.Export)
	rgpd.POST("/delete", rgpdController.RequestDeletion)

	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
