package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	_BookingHttpDelivery "github.com/semka95/natours/backend/booking/delivery/http"
	_BookingRepo "github.com/semka95/natours/backend/booking/repository"
	_BookingUcase "github.com/semka95/natours/backend/booking/usecase"
	"github.com/semka95/natours/backend/cmd"
	"github.com/semka95/natours/backend/domain"
	"github.com/semka95/natours/backend/email"
	"github.com/semka95/natours/backend/event"
	"github.com/semka95/natours/backend/metrics"
	_MyMiddleware "github.com/semka95/natours/backend/middleware"
	"github.com/semka95/natours/backend/payment"
	_ReviewHttpDelivery "github.com/semka95/natours/backend/review/delivery/http"
	_ReviewRepo "github.com/semka95/natours/backend/review/repository"
	_ReviewUcase "github.com/semka95/natours/backend/review/usecase"
	"github.com/semka95/natours/backend/store"
	_TourHttpDelivery "github.com/semka95/natours/backend/tour/delivery/http"
	_TourRepo "github.com/semka95/natours/backend/tour/repository"
	_TourUcase "github.com/semka95/natours/backend/tour/usecase"
	"github.com/semka95/natours/backend/upload"
	_UserHttpDelivery "github.com/semka95/natours/backend/user/delivery/http"
	_UserRepo "github.com/semka95/natours/backend/user/repository"
	_UserUcase "github.com/semka95/natours/backend/user/usecase"
	_ViewHttpDelivery "github.com/semka95/natours/backend/view/delivery/http"
	"github.com/semka95/natours/backend/web"
	"github.com/semka95/natours/backend/web/auth"
)

func main() {
	// Logging
	logger, err := zap.NewDevelopment(zap.AddCaller())
	if err != nil {
		log.Println("can't create logger: ", err)
		return
	}
	defer func() {
		// do not need to check for errors
		_ = logger.Sync()
	}()

	if err := run(logger); err != nil {
		logger.Error("shutting down, error: ", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// Configuration
	configPath := os.Getenv(cmd.ConfigEnv)
	logger.Info("Config path", zap.String("path", configPath))
	cfg, err := cmd.AppConfig(configPath, logger)
	if err != nil {
		return err
	}
	if cfg.Production() {
		prod, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("can't create production logger: %w", err)
		}
		defer func() {
			_ = prod.Sync()
		}()
		logger = prod
	}

	// Initialize authentication support
	authenticator, err := createAuth(cfg.Auth.PrivateKeyFile, cfg.Auth.KeyID, cfg.Auth.Algorithm)
	if err != nil {
		return err
	}

	// Initialize context
	timeoutContext := time.Duration(cfg.Server.Timeout) * time.Second
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			// the service name used to display traces in backends
			semconv.ServiceName("natours-api"),
		),
	)
	if err != nil {
		return err
	}

	// Initialize tracing and metrics
	tp, mp, err := initTelemetry(ctx, cfg.Server.OtlpAddress, res)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	tracer := otel.Tracer("natours-tracer")
	defer func() {
		if err = tp.Shutdown(ctx); err != nil {
			logger.Error("shutdown tracer provider", zap.Error(err))
		}
		if err = mp.Shutdown(ctx); err != nil {
			logger.Error("shutdown meter provider", zap.Error(err))
		}
	}()

	// Create database connection
	client, err := store.Open(ctx, cfg.MongoConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err = client.Disconnect(ctx); err != nil {
			logger.Error("mongodb client disconnect error: ", zap.Error(err))
		}
	}()

	if cfg.Server.Migrate {
		if err = store.Migrate(client, cfg.MongoConfig.Name, logger); err != nil {
			return err
		}
	}

	// Rate limit window store
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err = rdb.Close(); err != nil {
				logger.Error("redis client close error: ", zap.Error(err))
			}
		}()
		if err = rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis is not reachable, rate limiter fails open", zap.Error(err))
		}
	}
	var limiterClient redis.Cmdable
	if rdb != nil {
		limiterClient = rdb
	}
	limiterStore := _MyMiddleware.NewRateLimitStore(limiterClient, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger)

	// Outbound integrations
	var sender email.Sender = email.NewLogSender(logger)
	if cfg.Email.Host != "" {
		sender = email.NewSMTPSender(cfg.Email, logger)
	}
	mailer := email.NewMailer(sender, tracer)

	var publisher domain.EventPublisher = event.NewLogPublisher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		kp := event.NewKafkaPublisher(cfg.Kafka, logger, tracer)
		defer func() {
			if err = kp.Close(); err != nil {
				logger.Error("kafka publisher close error: ", zap.Error(err))
			}
		}()
		publisher = kp
	}

	gateway := payment.NewStripeGateway(cfg.Payment, logger, tracer)

	photos, err := upload.NewPhotoStore(cfg.Uploads.UsersDir)
	if err != nil {
		return err
	}

	// Initialize validator and templates
	v, err := web.NewAppValidator()
	if err != nil {
		return err
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	// Echo configure
	e := echo.New()
	e.Debug = !cfg.Production()
	e.Validator = v
	e.Renderer = renderer
	e.HTTPErrorHandler = web.ErrorHandler(logger)

	tr := _TourRepo.NewMongoTourRepository(client, cfg.MongoConfig.Name, logger, tracer)
	usr := _UserRepo.NewMongoUserRepository(client, cfg.MongoConfig.Name, logger, tracer)
	rr := _ReviewRepo.NewMongoReviewRepository(client, cfg.MongoConfig.Name, logger, tracer)
	br := _BookingRepo.NewMongoBookingRepository(client, cfg.MongoConfig.Name, logger, tracer)

	tu := _TourUcase.NewTourUsecase(tr, usr, rr, timeoutContext, tracer)
	usu := _UserUcase.NewUserUsecase(usr, mailer, timeoutContext, logger, tracer)
	ru := _ReviewUcase.NewReviewUsecase(rr, tr, timeoutContext, logger, tracer)
	bu := _BookingUcase.NewBookingUsecase(br, tr, usr, gateway, publisher, timeoutContext, logger, tracer)

	middL := _MyMiddleware.InitMiddleware(logger, _MyMiddleware.WithAuth(authenticator, usu))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         15552000,
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middL.CORS)
	e.Use(middL.Logger)
	e.Use(middleware.RecoverWithConfig(middleware.DefaultRecoverConfig))
	e.Use(otelecho.Middleware("natours", otelecho.WithTracerProvider(tp)))
	e.Use(metrics.Middleware(metrics.WithMeterProvider(mp)))
	e.Static("/", cfg.Server.StaticDir)

	bodyLimit := middleware.BodyLimit(cfg.Server.BodyLimit)

	// Payment webhook reads raw body and is signed by the gateway
	bh := _BookingHttpDelivery.NewBookingHandler(bu, v, cfg.Server.BaseURL, logger, tracer)
	bh.RegisterWebhook(e.Group(""))

	// REST API
	api := e.Group("/api/v1", middL.RateLimit(limiterStore), bodyLimit)

	th := _TourHttpDelivery.NewTourHandler(tu, v, logger, tracer)
	th.RegisterRoutes(api, middL)

	ush := _UserHttpDelivery.NewUserHandler(usu, authenticator, photos, v, _UserHttpDelivery.SessionConfig{
		TokenTTL:     cfg.Auth.TokenTTL,
		CookieTTL:    cfg.CookieTTL(),
		SecureCookie: cfg.Production(),
		BaseURL:      cfg.Server.BaseURL,
	}, logger, tracer)
	ush.RegisterRoutes(api, middL)

	rh := _ReviewHttpDelivery.NewReviewHandler(ru, v, logger, tracer)
	rh.RegisterRoutes(api, middL)

	bh.RegisterRoutes(api, middL)

	// Status check
	store.NewStatusHandler(api, client.Database(cfg.MongoConfig.Name))

	// Site pages
	vh := _ViewHttpDelivery.NewViewHandler(tu, usu, bu, photos, v, logger, tracer)
	vh.RegisterRoutes(e.Group("", bodyLimit), middL)

	go func() {
		if err := e.Start(cfg.Server.Address); err != nil {
			logger.Error("can't start server: ", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancelSrv := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSrv()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("can't shutdown server: %w", err)
	}

	return nil
}

// initTelemetry creates providers exporting over OTLP gRPC, providers
// without exporters are returned when address is empty
func initTelemetry(ctx context.Context, address string, res *resource.Resource) (*sdktrace.TracerProvider, *metric.MeterProvider, error) {
	if address == "" {
		return sdktrace.NewTracerProvider(sdktrace.WithResource(res)),
			metric.NewMeterProvider(metric.WithResource(res)),
			nil
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(address),
		otlptracegrpc.WithDialOption(grpc.WithBlock()),
	)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()), // dev env only
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(address),
		otlpmetricgrpc.WithDialOption(grpc.WithBlock()),
	)
	if err != nil {
		return nil, nil, err
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(10*time.Second))),
		metric.WithResource(res),
	)

	return tp, mp, nil
}

func createAuth(privateKeyFile, keyID, algorithm string) (*auth.Authenticator, error) {
	keyContents, err := os.ReadFile(privateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("can't read auth private key: %w", err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyContents)
	if err != nil {
		return nil, fmt.Errorf("can't parse auth private key: %w", err)
	}

	public := auth.NewSimpleKeyLookupFunc(keyID, key.Public().(*rsa.PublicKey))

	return auth.NewAuthenticator(key, keyID, algorithm, public)
}
