package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/app"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/config"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/controllers"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/crm"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/middleware"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/repositories"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/services"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// CRM client
	//----------------------------------------------------------------------
	crmClient, err := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIKey, 3, 0)
	if err != nil {
		utils.Logger.Fatal("Failed to create CRM client:", err)
	}

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	verificationRepo := repositories.NewVerificationRepository(application.DB)
	lookupRepo := repositories.NewLookupTokenRepository(application.DB)
	tokenRepo := repositories.NewTokenRepository(application.DB)
	rateLimitRepo := repositories.NewRateLimitRepository(application.DB)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, cfg)
	sessionService := services.NewSessionService(cfg, tokenRepo)

	portalAuthService := services.NewPortalAuthService(
		verificationRepo,
		lookupRepo,
		rateLimiterService,
		sessionService,
		crmClient,
		cfg,
	)

	verificationCleanupService := services.NewVerificationCleanupService(verificationRepo, lookupRepo)
	tokenCleanupService := services.NewTokenCleanupService(tokenRepo)
	rateLimitCleanupService := services.NewRateLimitCleanupService(rateLimitRepo)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	portalAuthController := controllers.NewPortalAuthController(portalAuthService, cfg)
	sessionController := controllers.NewSessionController(sessionService, crmClient, cfg)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()

	// Health
	router.HandleFunc("/health", healthController.HealthCheckHandler).Methods("GET")

	// Public auth wizard endpoints
	authRouter := router.PathPrefix("/api/portal/auth").Subrouter()
	authRouter.HandleFunc("/lookup-by-phone", portalAuthController.LookupByPhone).Methods("POST")
	authRouter.HandleFunc("/send-code", portalAuthController.SendCode).Methods("POST")
	authRouter.HandleFunc("/verify-code", portalAuthController.VerifyCode).Methods("POST")

	// Cookie-session endpoints
	portalRouter := router.PathPrefix("/api/customer-portal").Subrouter()
	portalRouter.HandleFunc("/session", sessionController.Session).Methods("GET")
	portalRouter.HandleFunc("/logout", sessionController.Logout).Methods("POST")
	portalRouter.HandleFunc("/session/refresh", sessionController.RefreshToken).Methods("POST")

	// Protected endpoints require a valid token
	portalProtected := router.PathPrefix("/api/customer-portal").Subrouter()
	portalProtected.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))
	portalProtected.HandleFunc("/customer", sessionController.Customer).Methods("GET")
	portalProtected.HandleFunc("/switch-account", sessionController.SwitchAccount).Methods("POST")

	//----------------------------------------------------------------------
	// Setup daily cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()

	// verification codes + lookup tokens
	_, schErr1 := c.AddFunc("0 3 * * *", func() {
		if e := verificationCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled verification-codes cleanup failed")
		}
	})
	if schErr1 != nil {
		utils.Logger.WithError(schErr1).Fatal("Failed to schedule verification-codes cleanup job")
	}

	// token cleanup
	_, schErr2 := c.AddFunc("5 3 * * *", func() {
		if e := tokenCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled token cleanup failed")
		}
	})
	if schErr2 != nil {
		utils.Logger.WithError(schErr2).Fatal("Failed to schedule token cleanup job")
	}

	// rate limit counter cleanup
	_, schErr3 := c.AddFunc("10 3 * * *", func() {
		if e := rateLimitCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled rate limit counter cleanup failed")
		}
	})
	if schErr3 != nil {
		utils.Logger.WithError(schErr3).Fatal("Failed to schedule rate limit counter cleanup job")
	}

	c.Start()

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "ngrok-skip-browser-warning"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
