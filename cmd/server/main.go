// Binary server assembles the certification service: store selection,
// service construction, router wiring, and lifecycle. Business logic lives
// in the internal service packages.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"certforge/internal/audit"
	"certforge/internal/certificate/eligibility"
	certhandler "certforge/internal/certificate/handler"
	"certforge/internal/certificate/metrics"
	"certforge/internal/certificate/render"
	certservice "certforge/internal/certificate/service"
	certstore "certforge/internal/certificate/store"
	enrollhandler "certforge/internal/enrollment/handler"
	enrollservice "certforge/internal/enrollment/service"
	enrollstore "certforge/internal/enrollment/store"
	httpapi "certforge/internal/http"
	invitehandler "certforge/internal/invite/handler"
	inviteservice "certforge/internal/invite/service"
	invitestore "certforge/internal/invite/store"
	"certforge/internal/notify"
	"certforge/internal/platform/config"
	"certforge/internal/platform/database"
	"certforge/internal/platform/httpserver"
	"certforge/internal/platform/logger"
	platformredis "certforge/internal/platform/redis"
	"certforge/internal/platform/token"
	ratelimitmw "certforge/internal/ratelimit/middleware"
	ratelimitservice "certforge/internal/ratelimit/service"
	ratelimitstore "certforge/internal/ratelimit/store"
	tenanthandler "certforge/internal/tenant/handler"
	tenantservice "certforge/internal/tenant/service"
	tenantstore "certforge/internal/tenant/store"
	verifyhandler "certforge/internal/verification/handler"
	verifyservice "certforge/internal/verification/service"
	"certforge/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	lg := logger.New()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if db != nil {
		defer db.Close()
		lg.Info("using postgres stores")
	} else {
		lg.Info("no DATABASE_URL set, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		// Rate limiting is advisory; fall back to per-process counters.
		lg.Warn("redis unavailable, using in-memory rate limit counters", "error", err)
	}

	// Stores.
	var (
		orgs        tenantstore.Store
		employees   enrollstore.EmployeeStore
		programs    enrollstore.ProgramStore
		enrollments enrollstore.EnrollmentStore
		reports     enrollstore.ReportStore
		attempts    enrollstore.AttemptStore
		certs       certstore.Store
		invites     invitestore.Store
		auditStore  audit.Store
		runner      tx.Runner
	)
	if db != nil {
		orgs = tenantstore.NewPostgresStore(db)
		employees = enrollstore.NewPostgresEmployeeStore(db)
		programs = enrollstore.NewPostgresProgramStore(db)
		enrollments = enrollstore.NewPostgresEnrollmentStore(db)
		reports = enrollstore.NewPostgresReportStore(db)
		attempts = enrollstore.NewPostgresAttemptStore(db)
		certs = certstore.NewPostgresStore(db)
		invites = invitestore.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
	} else {
		orgs = tenantstore.NewInMemoryStore()
		employees = enrollstore.NewInMemoryEmployeeStore()
		programs = enrollstore.NewInMemoryProgramStore()
		enrollments = enrollstore.NewInMemoryEnrollmentStore()
		reports = enrollstore.NewInMemoryReportStore()
		attempts = enrollstore.NewInMemoryAttemptStore()
		certs = certstore.NewInMemoryStore()
		invites = invitestore.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		runner = tx.NopRunner{}
	}

	// Audit pipeline.
	publisher := audit.NewPublisher(256, lg)
	worker := audit.NewWorker(auditStore, publisher.Inbox(), lg)

	// Services.
	tenantSvc := tenantservice.New(orgs)
	enrollSvc := enrollservice.New(employees, programs, enrollments, reports, attempts, lg)
	evaluator, err := eligibility.New(enrollments, reports, attempts, programs, eligibility.PassPolicyAny)
	if err != nil {
		log.Fatalf("eligibility: %v", err)
	}
	certSvc := certservice.New(evaluator, certs, render.New(cfg.BaseURL),
		employees, programs, tenantSvc, publisher, metrics.New(), lg)
	inviteSvc := inviteservice.New(invites, tenantSvc, programs, enrollSvc,
		notify.NewLogNotifier(lg), runner, publisher, cfg.InviteTTL, lg)
	verifySvc := verifyservice.New(certs, lg)

	// Rate limiting.
	var counters ratelimitstore.CounterStore
	if redisClient != nil {
		counters = ratelimitstore.NewRedisStore(redisClient.Client)
	} else {
		counters = ratelimitstore.NewInMemoryStore()
	}
	limiter := ratelimitservice.New(counters, nil, lg)
	rateLimit := ratelimitmw.New(limiter, lg, ratelimitmw.WithDisabled(cfg.RateLimitOff))

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         lg,
		AdminToken:     cfg.AdminToken,
		TokenValidator: token.NewValidator(cfg.JWTSigningKey),
		RateLimit:      rateLimit,
		RequestTimeout: cfg.RequestTimeout,
		Certificates:   certhandler.New(certSvc, lg),
		Enrollment:     enrollhandler.New(enrollSvc, lg),
		Organizations:  tenanthandler.New(tenantSvc),
		Invites:        invitehandler.New(inviteSvc, lg),
		Verification:   verifyhandler.New(verifySvc, lg),
		Readiness: func(ctx context.Context) error {
			if db != nil {
				return db.PingContext(ctx)
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		lg.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	lg.Info("server stopped")
}
