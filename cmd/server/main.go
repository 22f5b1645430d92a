package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agroisync/backend/internal/cache"
	"github.com/agroisync/backend/internal/config"
	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/handler"
	appMiddleware "github.com/agroisync/backend/internal/middleware"
	"github.com/agroisync/backend/internal/repository"
	"github.com/agroisync/backend/internal/service"
	"github.com/agroisync/backend/pkg/chain"
	"github.com/agroisync/backend/pkg/crypto"
	"github.com/agroisync/backend/pkg/notify"
	"github.com/agroisync/backend/pkg/payment"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("store error")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
	}()

	rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("redis error")
	}
	defer rdb.Close()
	log.Info("redis connected")

	sealer, err := crypto.NewSealer(cfg.EncryptionKey)
	if err != nil {
		log.WithError(err).Fatal("encryption error")
	}

	// Card and crypto payments are optional; the service answers with a
	// provider error when either is not configured.
	var gateway payment.CheckoutGateway
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, card checkout disabled")
	}

	var reader chain.Reader
	if cfg.ChainRPCURL != "" {
		client, err := chain.Dial(ctx, cfg.ChainRPCURL)
		if err != nil {
			log.WithError(err).Fatal("chain RPC error")
		}
		defer client.Close()
		reader = client
		log.Info("chain RPC connected")
	} else {
		log.Warn("CHAIN_RPC_URL not set, crypto payments disabled")
	}

	senders, err := newSenders(cfg)
	if err != nil {
		log.WithError(err).Fatal("notification provider error")
	}

	logger := log.StandardLogger()
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminEmail)
	paymentSvc := service.NewPaymentService(store, gateway, reader, cache.NewTxLocks(rdb, 2*time.Minute), service.PaymentConfig{
		SiteURL:          cfg.SiteURL,
		AdminWallet:      cfg.AdminWallet,
		MinConfirmations: cfg.MinConfirmations,
	}, logger)
	shipmentSvc := service.NewShipmentService(store, sealer, cfg.Location)
	verificationSvc := service.NewVerificationService(cache.NewCodeStore(rdb), senders, logger)
	adminSvc := service.NewAdminService(store, logger)

	service.NewPlanSweeper(store.Users(), cfg.SweepInterval, logger).Start(ctx)

	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"store": store,
		"redis": handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	})
	plansHandler := handler.NewPlansHandler()
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	shipmentHandler := handler.NewShipmentHandler(shipmentSvc)
	verificationHandler := handler.NewVerificationHandler(verificationSvc)
	adminHandler := handler.NewAdminHandler(adminSvc)

	r := chi.NewRouter()

	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.RequestID)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 20 req/sec per IP, burst of 40
	globalRL := appMiddleware.NewRateLimiter(ctx, 20, 40)
	r.Use(globalRL.Middleware())

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Public routes
	r.Get("/health", healthHandler.Check)
	r.Get("/api/plans", plansHandler.List)
	r.Post("/api/payments/stripe/webhook", paymentHandler.StripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter(ctx))
		r.Post("/api/verification/send", verificationHandler.Send)
		r.Post("/api/verification/verify", verificationHandler.Verify)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Post("/api/payments/stripe/checkout", paymentHandler.CreateCheckout)
		r.With(appMiddleware.StrictRateLimiter(ctx)).Post("/api/payments/crypto/submit", paymentHandler.SubmitCrypto)
		r.Get("/api/payments", paymentHandler.List)
		r.Get("/api/me/plan", paymentHandler.MyPlan)

		r.Get("/api/shipments", shipmentHandler.List)
		r.Post("/api/shipments", shipmentHandler.Create)
		r.Get("/api/shipments/{id}", shipmentHandler.Get)
		r.Put("/api/shipments/{id}", shipmentHandler.Update)
		r.Delete("/api/shipments/{id}", shipmentHandler.Delete)

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly(authSvc))
			r.Get("/api/admin/stats", adminHandler.GetStats)
			r.Get("/api/admin/payments", adminHandler.ListPayments)
		})
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.WithFields(log.Fields{"addr": addr, "env": cfg.Env}).Info("AgroSync backend listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.WithError(err).Fatal("server error")
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// openStore picks MongoDB, then Postgres, then the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch {
	case cfg.MongoURI != "":
		client, err := repository.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.WithField("database", cfg.MongoDatabase).Info("mongodb connected")
		return repository.NewMongoStore(client, cfg.MongoDatabase), nil

	case cfg.DatabaseURL != "":
		pool, err := repository.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repository.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("postgres connected & migrated")
		return repository.NewPostgresStore(pool), nil

	default:
		if cfg.IsProduction() {
			return nil, fmt.Errorf("MONGODB_URI or DATABASE_URL is required in production")
		}
		log.Warn("no database configured, using in-memory store")
		return repository.NewMemoryStore(), nil
	}
}

func newSenders(cfg *config.Config) (map[string]notify.Sender, error) {
	senders := make(map[string]notify.Sender, 2)

	switch cfg.SMSProvider {
	case "twilio":
		sms, err := notify.NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
		if err != nil {
			return nil, err
		}
		senders[domain.ChannelSMS] = sms
	case "log":
		senders[domain.ChannelSMS] = notify.NewLogSender(domain.ChannelSMS, log.StandardLogger())
	default:
		return nil, fmt.Errorf("unknown SMS_PROVIDER %q", cfg.SMSProvider)
	}

	switch cfg.EmailProvider {
	case "resend":
		email, err := notify.NewResendEmail(cfg.ResendAPIKey, cfg.EmailFrom)
		if err != nil {
			return nil, err
		}
		senders[domain.ChannelEmail] = email
	case "log":
		senders[domain.ChannelEmail] = notify.NewLogSender(domain.ChannelEmail, log.StandardLogger())
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}

	return senders, nil
}
