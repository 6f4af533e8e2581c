package routes

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/farmlink/farmlink/internal/auth"
	"github.com/farmlink/farmlink/internal/config"
	"github.com/farmlink/farmlink/internal/creditscore"
	"github.com/farmlink/farmlink/internal/identity"
	"github.com/farmlink/farmlink/internal/loans"
	"github.com/farmlink/farmlink/internal/middleware"
	"github.com/farmlink/farmlink/internal/notification"
	"github.com/farmlink/farmlink/internal/otp"
)

// Deps aggregates shared dependencies required to wire routes. The optional
// fields replace the collaborators built from Cfg.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	Notifier   notification.Notifier
	Scorer     creditscore.Scorer
	Hasher     identity.PasswordHasher
	Clock      func() time.Time
	OTPOptions []otp.Option
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}

	// Services
	var (
		userRepo identity.UserRepository
		instRepo identity.InstitutionRepository
	)
	if d.DB != nil {
		userRepo = identity.NewPostgresUserRepository(d.DB)
		instRepo = identity.NewPostgresInstitutionRepository(d.DB)
	} else {
		userRepo = identity.NewMemoryUserRepository()
		instRepo = identity.NewMemoryInstitutionRepository()
	}
	hasher := d.Hasher
	if hasher == nil {
		hasher = identity.NewBcryptHasher(bcrypt.DefaultCost)
	}
	identitySvc := identity.NewService(userRepo, instRepo, hasher, identity.WithClock(d.Clock))

	codec := auth.NewCodec(d.Cfg.JWTSecret, d.Cfg.TokenTTL, auth.WithTimeFunc(d.Clock))
	authSvc := auth.NewService(identitySvc, codec)

	notifier := d.Notifier
	if notifier == nil {
		var err error
		notifier, err = buildNotifier(d.Cfg, d.Logger)
		if err != nil {
			return err
		}
	}

	otpOpts := append([]otp.Option{
		otp.WithClock(d.Clock),
		otp.WithDispatchTimeout(d.Cfg.OTPDispatchTimeout),
	}, d.OTPOptions...)
	otpEngine := otp.NewEngine(identitySvc, notifier, d.Cfg.OTPTTL, d.Logger, otpOpts...)

	scorer := d.Scorer
	if scorer == nil && d.Cfg.CreditScoreURL != "" {
		scorer = creditscore.NewHTTPScorer(d.Cfg.CreditScoreURL, d.Cfg.CreditScoreTimeout)
	}
	scoreSvc := creditscore.NewService(identitySvc, scorer)
	loanSvc := loans.NewService(identitySvc, notifier, d.Logger)

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(middleware.Authenticate(codec, identitySvc.Resolver(), d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	loginLimiter := middleware.RateLimit(d.Cache, "login", d.Cfg.LoginAttemptsPerMinute, time.Minute, middleware.KeyByLoginName)
	otpLimiter := middleware.RateLimit(d.Cache, "otp", d.Cfg.OTPAttemptsPerMinute, time.Minute, middleware.KeyByPrincipal)

	RegisterPublicRoutes(app, auth.NewHandler(identitySvc, authSvc, d.Logger), loginLimiter)
	RegisterUserRoutes(app, UserHandlers{
		Identity:    identity.NewHandler(identitySvc),
		OTP:         otp.NewHandler(otpEngine),
		CreditScore: creditscore.NewHandler(scoreSvc),
	}, otpLimiter)
	RegisterBankRoutes(app, BankHandlers{
		Identity:    identity.NewHandler(identitySvc),
		Loans:       loans.NewHandler(loanSvc),
		CreditScore: creditscore.NewHandler(scoreSvc),
	})

	return nil
}

func buildNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, error) {
	var email, sms notification.Notifier = notification.NewLoggerNotifier(logger), notification.NewLoggerNotifier(logger)
	if cfg.SMTP.Enabled() {
		n, err := notification.NewSMTPNotifier(notification.SMTPSettings{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, err
		}
		email = n
	} else {
		logger.Warn("smtp not configured, emails will only be logged")
	}
	if cfg.Twilio.Enabled() {
		sms = notification.NewTwilioNotifier(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	} else {
		logger.Warn("twilio not configured, sms will only be logged")
	}
	return notification.NewRouter(email, sms), nil
}
