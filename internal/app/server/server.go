package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"workforce/internal/domain/attendance"
	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/domain/balance"
	"workforce/internal/domain/directory"
	"workforce/internal/domain/holiday"
	"workforce/internal/domain/leave"
	"workforce/internal/domain/notify"
	"workforce/internal/domain/policy"
	"workforce/internal/domain/shift"
	"workforce/internal/platform/config"
	"workforce/internal/platform/crypto"
	"workforce/internal/platform/db"
	"workforce/internal/platform/email"
	"workforce/internal/platform/jobs"
	"workforce/internal/platform/metrics"
	"workforce/internal/transport/http/api"
	attendancehandler "workforce/internal/transport/http/handlers/attendance"
	audithandler "workforce/internal/transport/http/handlers/audit"
	authhandler "workforce/internal/transport/http/handlers/auth"
	directoryhandler "workforce/internal/transport/http/handlers/directory"
	leavehandler "workforce/internal/transport/http/handlers/leave"
	"workforce/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	encryption, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		log.Fatalf("data encryption key invalid: %v", err)
	}

	collector := metrics.New()
	perms := auth.StaticPerms{}

	directorySvc := directory.NewService(pool)
	policySvc := policy.NewService(pool)
	holidaySvc := holiday.NewService(pool)
	shiftSvc := shift.NewService(pool)
	balanceSvc := balance.NewService(balance.NewStore(pool), policySvc, collector)
	leaveSvc := leave.NewService(leave.NewStore(pool), balanceSvc, policySvc, directorySvc, holidaySvc)
	attendanceSvc := attendance.NewService(attendance.NewStore(pool), shiftSvc, leaveSvc, policySvc, holidaySvc, directorySvc)
	auditSvc := audit.New(pool)
	authSvc := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	notifySvc := notify.New(email.New(cfg), cfg.EmailFrom)
	jobsSvc := jobs.New(pool, cfg, attendanceSvc)
	jobsSvc.Start(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authSvc, auditSvc,
			middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow))
		authHandler.RegisterRoutes(r)

		directoryHandler := &directoryhandler.Handler{
			Directory: directorySvc,
			Shifts:    shiftSvc,
			Audit:     auditSvc,
			Perms:     perms,
		}
		directoryHandler.RegisterRoutes(r)

		leaveHandler := &leavehandler.Handler{
			Requests:   leaveSvc,
			Policies:   policySvc,
			Holidays:   holidaySvc,
			Balances:   balanceSvc,
			Directory:  directorySvc,
			Audit:      auditSvc,
			Notify:     notifySvc,
			Jobs:       jobsSvc,
			Perms:      perms,
			Idem:       middleware.NewIdempotencyStore(pool),
			ChainDepth: cfg.ApprovalChainDepth,
		}
		leaveHandler.RegisterRoutes(r)

		attendanceHandler := &attendancehandler.Handler{
			Attendance: attendanceSvc,
			Directory:  directorySvc,
			Audit:      auditSvc,
			Encryption: encryption,
			Perms:      perms,
			ExportDir:  cfg.AttendanceExportDir,
		}
		attendanceHandler.RegisterRoutes(r)

		auditHandler := &audithandler.Handler{Audit: auditSvc, Perms: perms}
		auditHandler.RegisterRoutes(r)
	})

	slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
