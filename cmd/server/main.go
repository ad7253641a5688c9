package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	attendancerepo "beacon-attendance/backend/internal/attendance/repository"
	"beacon-attendance/backend/internal/audit"
	auditrepo "beacon-attendance/backend/internal/audit/repository"
	authhandler "beacon-attendance/backend/internal/auth/handler"
	authrepo "beacon-attendance/backend/internal/auth/repository"
	authservice "beacon-attendance/backend/internal/auth/service"
	"beacon-attendance/backend/internal/config"
	"beacon-attendance/backend/internal/db"
	membershiprepo "beacon-attendance/backend/internal/membership/repository"
	orgrepo "beacon-attendance/backend/internal/organization/repository"
	"beacon-attendance/backend/internal/security"
	"beacon-attendance/backend/internal/server"
	"beacon-attendance/backend/internal/server/middleware"
	sessionhandler "beacon-attendance/backend/internal/session/handler"
	sessionrepo "beacon-attendance/backend/internal/session/repository"
	sessionservice "beacon-attendance/backend/internal/session/service"
	"beacon-attendance/backend/internal/telemetry"
	otelsetup "beacon-attendance/backend/internal/telemetry/otel"
	"beacon-attendance/backend/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "beacon-attendance-api", false)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	var emitter telemetry.EventEmitter = telemetry.NopEmitter{}
	if kafkaProducer != nil {
		emitter = telemetry.NewAsync(kafkaProducer)
		defer kafkaProducer.Close()
	}

	users := authrepo.NewPostgresRepository(database)
	memberships := membershiprepo.NewPostgresRepository(database)
	orgs := orgrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	records := attendancerepo.NewPostgresRepository(database)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(database), middleware.ClientIP)

	authSvc := authservice.NewAuthService(users, memberships, hasher, tokens)
	sessionSvc := sessionservice.NewSessionService(sessions, records, orgs, memberships, auditor, emitter)

	router := server.NewRouter(server.Deps{
		Tokens:   tokens,
		Auth:     authhandler.NewHTTPHandler(authSvc),
		Sessions: sessionhandler.NewHTTPHandler(sessionSvc),
		Env:      cfg.Env,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry finish before tearing down exporters.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
