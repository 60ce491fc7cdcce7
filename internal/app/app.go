package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/walpay/core/internal/config"
	"github.com/walpay/core/internal/database"
	"github.com/walpay/core/internal/middleware"
	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/modules/auth/otp"
	"github.com/walpay/core/internal/modules/auth/session"
	"github.com/walpay/core/internal/modules/flow"
	"github.com/walpay/core/internal/modules/payment"
	"github.com/walpay/core/internal/modules/seller"
	pkgcron "github.com/walpay/core/internal/pkg/cron"
	"github.com/walpay/core/internal/pkg/credential"
	"github.com/walpay/core/internal/pkg/mail"
	pkgredis "github.com/walpay/core/internal/pkg/redis"
	"github.com/walpay/core/internal/store/mongostore"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	mongo  *mongo.Client
	rc     *pkgredis.Client
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// services groups the wired domain services for route registration.
type services struct {
	sellers  *seller.Service
	otps     *otp.Service
	sessions *session.Service
	payments *payment.Service
	resolver *middleware.Resolver
}

// New initializes the application: config → Mongo → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	client, db, err := database.Connect(ctx, cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		cancel()
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database indexes: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		cancel()
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	st := mongostore.New(db)
	svcs := buildServices(cfg, st, logger)

	sched := pkgcron.New()
	registerCronJobs(sched, svcs.otps, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:    cfg,
		router: router,
		mongo:  client,
		rc:     rc,
		logger: logger,
		cancel: cancel,
		sched:  sched,
	}
	app.registerRoutes(svcs)

	return app, nil
}

func buildServices(cfg *config.AppConfig, st *mongostore.Store, logger *zap.Logger) services {
	sender := mail.New(mail.Config{
		Enable:    cfg.Mail.Enable,
		Host:      cfg.Mail.Host,
		Port:      cfg.Mail.Port,
		User:      cfg.Mail.User,
		Pass:      cfg.Mail.Pass,
		From:      cfg.Mail.From,
		ReplyTo:   cfg.Mail.ReplyTo,
		UseResend: cfg.Mail.UseResend,
		ResendKey: cfg.Mail.ResendKey,
	})

	sessionSvc := session.NewService(st.Sessions, session.Config{
		AccessTokenTTL:    cfg.Auth.AccessTokenTTL(),
		RefreshTokenTTL:   cfg.Auth.RefreshTokenTTL(),
		SessionMaxLife:    cfg.Auth.SessionMaxLife(),
		AccessTokenBytes:  cfg.Auth.AccessTokenBytes,
		RefreshTokenBytes: cfg.Auth.RefreshTokenBytes,
	})
	otpSvc := otp.NewService(st.Otps, otpMailer{sender: sender}, otp.Config{
		Length: cfg.Otp.Length,
		TTL:    cfg.Otp.TTL(),
	}, otp.WithLogger(logger.Named("OtpService")))
	sellerSvc := seller.NewService(
		st.Sellers,
		st.Payments,
		st.Transactions,
		sessionSvc,
		credential.NewHasher(cfg.Auth.PasswordIterations),
		cfg.Payment.DefaultCountry,
	)
	flowClient := flow.NewClient(cfg.Flow.AccessNode, logger.Named("FlowClient"))
	paymentSvc := payment.NewService(st.Payments, st.Transactions, flowClient, payment.Config{
		PlatformFeePercent: cfg.Payment.PlatformFeePercent,
		FlowUSDRate:        cfg.Flow.USDRate,
	}, logger.Named("PaymentService"))
	paymentSvc.SetReceiptNotifier(receiptMailer{sender: sender}, st.Sellers)

	return services{
		sellers:  sellerSvc,
		otps:     otpSvc,
		sessions: sessionSvc,
		payments: paymentSvc,
		resolver: middleware.NewResolver(sessionSvc, st.Sellers),
	}
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "x-walpay-cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsCfg.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsCfg.AllowOriginFunc = func(origin string) bool { return true }
	}
	return corsCfg
}

// otpMailer delivers codes through the shared mail sender.
type otpMailer struct {
	sender *mail.Sender
}

func (m otpMailer) SendOtpCode(email, code string, purpose models.OtpPurpose, expiresAt time.Time) error {
	return m.sender.SendOtp(email, mail.OtpData{
		Code:      code,
		Purpose:   string(purpose),
		ExpiresAt: expiresAt,
	})
}

// receiptMailer forwards payment receipts through the shared mail sender.
type receiptMailer struct {
	sender *mail.Sender
}

func (m receiptMailer) SendPaymentReceipt(email, paymentName string, amountFlow float64, txID string) error {
	return m.sender.SendPaymentReceipt(email, mail.PaymentReceiptData{
		PaymentTitle: paymentName,
		AmountFlow:   amountFlow,
		TxID:         txID,
	})
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines and connections.
func (a *App) Shutdown() {
	a.cancel()
	if err := a.rc.Close(); err != nil {
		a.logger.Warn("redis close failed", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.mongo.Disconnect(ctx); err != nil {
		a.logger.Warn("mongo disconnect failed", zap.Error(err))
	}
}
