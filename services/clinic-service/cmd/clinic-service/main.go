package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/config"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicbook/libs/otel"
	"github.com/md-rashed-zaman/clinicbook/libs/runtime"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/handlers"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotEnv()

	service := config.String("SERVICE_NAME", "clinic-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	hours, err := clinicHours()
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.PositiveInt("DB_MAX_CONNS", 10)),
		MinConns: int32(config.PositiveInt("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool, logger); err != nil {
		logger.Error("schema migration failed", "err", err)
		panic(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	outboxRepo := outbox.NewRepository()
	users := storage.NewUserRepository(pool, outboxRepo)
	services := storage.NewServiceRepository(pool)
	appointments := storage.NewAppointmentRepository(pool, outboxRepo)

	if err := bootstrapAdmin(ctx, users, logger); err != nil {
		logger.Error("admin bootstrap failed", "err", err)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, m, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: config.PositiveInt("OUTBOX_BATCH_SIZE", 50),
		Retention: time.Duration(config.NonNegativeInt("OUTBOX_RETENTION_HOURS", 168)) * time.Hour,
	})
	go publisher.Run(ctx)

	bookings := booking.NewService(appointments, hours, logger, m)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if publisher.Enabled() {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	limitPerMinute := config.PositiveInt("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.NonNegativeInt("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "clinic:rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", m.Handler())
	handlers.Register(mux, handlers.Routes{
		Auth:         handlers.NewAuthHandler(users, jwtSecret, time.Duration(config.PositiveInt("JWT_TTL_HOURS", 24))*time.Hour, logger),
		Services:     handlers.NewServiceHandler(services, bookings, logger),
		Appointments: handlers.NewAppointmentHandler(bookings, logger),
		JWTSecret:    jwtSecret,
	})

	handler := httpx.Chain(m.Middleware(mux),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS"),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id"),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Seconds("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.PositiveInt("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 10*time.Second)),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "clinic")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	stopGrpc, err := startGrpcServer(logger, service)
	if err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	if stopGrpc != nil {
		stopGrpc()
	}
	logger.Info("http server stopped")
}

// clinicHours reads the daily booking window and slot step.
func clinicHours() (booking.Hours, error) {
	open, err := scheduling.ParseTimeOfDay(config.String("CLINIC_OPEN", "08:00"))
	if err != nil {
		return booking.Hours{}, fmt.Errorf("CLINIC_OPEN: %w", err)
	}
	closing, err := scheduling.ParseTimeOfDay(config.String("CLINIC_CLOSE", "18:00"))
	if err != nil {
		return booking.Hours{}, fmt.Errorf("CLINIC_CLOSE: %w", err)
	}
	if closing <= open {
		return booking.Hours{}, fmt.Errorf("CLINIC_CLOSE %s must be after CLINIC_OPEN %s", closing, open)
	}
	return booking.Hours{
		Open:  open,
		Close: closing,
		Step:  config.PositiveInt("SLOT_STEP_MINUTES", 15),
	}, nil
}

// bootstrapAdmin makes sure ADMIN_EMAIL exists with the admin role. It does
// nothing unless both ADMIN_EMAIL and ADMIN_PASSWORD are set.
func bootstrapAdmin(ctx context.Context, users *storage.UserRepository, logger *slog.Logger) error {
	email := strings.ToLower(config.String("ADMIN_EMAIL", ""))
	password := config.String("ADMIN_PASSWORD", "")
	if email == "" || password == "" {
		return nil
	}
	hash, err := handlers.HashPassword(password)
	if err != nil {
		return fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}
	admin, err := users.EnsureAdmin(ctx, config.String("ADMIN_NAME", "Administrator"), email, hash)
	if err != nil {
		return err
	}
	logger.Info("admin account ready", "user_id", admin.ID, "email", admin.Email)
	return nil
}
