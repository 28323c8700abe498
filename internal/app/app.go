package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/config"
	"github.com/prperemyshlev/identity-service/internal/handler"
	"github.com/prperemyshlev/identity-service/internal/service"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"github.com/prperemyshlev/identity-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

type routes struct {
	auth        *handler.AuthHandler
	me          *handler.MeHandler
	authService service.AuthService
	rateLimiter *service.RateLimiter
	health      *HealthChecker
	metrics     *observability.AuthMetrics
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := infra.Repositories()

	metrics, err := observability.NewAuthMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, err
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry.Duration)

	sessions := service.NewSessionManager(
		repos.Token,
		jwtManager,
		service.CleanupPolicy{
			SameDeviceAfter: cfg.Session.CleanupSameDeviceAfter.Duration,
			AnyDeviceAfter:  cfg.Session.CleanupAnyDeviceAfter.Duration,
		},
		logger,
		metrics,
	)

	authService, err := service.NewAuthService(
		repos.User,
		sessions,
		jwtManager,
		utils.NewPasswordPolicy(cfg.Security.PasswordMinLength, cfg.Security.BCryptCost),
		infra.Mailer(),
		service.NewCodeLedger(infra.Redis()),
		service.VerificationSettings{
			Secret:          []byte(cfg.Verification.Secret),
			OTPDigits:       cfg.Verification.OTPDigits,
			OTPExpiry:       cfg.Verification.OTPExpiry.Duration,
			OTPMaxAttempts:  cfg.Verification.OTPMaxAttempts,
			ResetLinkExpiry: cfg.Verification.ResetLinkExpiry.Duration,
		},
		logger,
		metrics,
	)
	if err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// X-Forwarded-For is honoured only from configured proxies
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, routes{
		auth:        handler.NewAuthHandler(authService, logger),
		me:          handler.NewMeHandler(authService, logger),
		authService: authService,
		rateLimiter: service.NewRateLimiter(infra.Redis()),
		health:      NewHealthChecker(infra),
		metrics:     metrics,
	}, infra.MetricsHandler(), logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(router *gin.Engine, cfg *config.Config, r routes, metricsHandler http.Handler, logger *zap.Logger) {
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
	router.GET("/health", r.health.Handler)

	limited := handler.RateLimitMiddleware(r.rateLimiter, handler.RateLimit{
		Limit:   cfg.Security.RateLimitRequests,
		Window:  cfg.Security.RateLimitWindow.Duration,
		KeyFunc: handler.IPBasedKey,
	}, logger, r.metrics)
	authRequired := handler.AuthMiddleware(r.authService)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", limited, r.auth.Signup)
			auth.POST("/signup/complete", limited, r.auth.CompleteSignup)
			auth.POST("/login", limited, r.auth.Login)
			auth.POST("/token", limited, r.auth.Token)
			auth.POST("/logout", handler.OptionalAuthMiddleware(r.authService), r.auth.Logout)
			auth.POST("/password-reset", limited, r.auth.BeginPasswordReset)
			auth.POST("/password-reset/complete", limited, r.auth.CompletePasswordReset)
			auth.POST("/password-reset/link", limited, r.auth.RequestPasswordResetLink)
			auth.POST("/password-reset/confirm", limited, r.auth.ResetPassword)
		}

		me := api.Group("/me", authRequired)
		{
			me.GET("", r.me.GetMe)
			me.GET("/logins", r.me.ListLogins)
			me.DELETE("/logins/:id", r.me.RevokeLogin)
			me.PUT("/password", r.me.ChangePassword)
			me.POST("/email", limited, r.me.BeginEmailChange)
			me.POST("/email/complete", limited, r.me.CompleteEmailChange)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
			zap.String("store", a.config.Store.Driver),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// The server drains first so in-flight requests still reach the stores
	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Server shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	a.infra.Logger().Info("Application exited successfully")

	return a.infra.Shutdown(ctx)
}
