// server runs the session API. Set DATABASE_URL, JWT_PRIVATE_KEY, and
// JWT_PUBLIC_KEY; everything else has defaults (see internal/config).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propertydesk/backend/internal/audit"
	auditrepo "propertydesk/backend/internal/audit/repository"
	blacklistrepo "propertydesk/backend/internal/blacklist/repository"
	"propertydesk/backend/internal/config"
	"propertydesk/backend/internal/db"
	healthhandler "propertydesk/backend/internal/health/handler"
	identityhandler "propertydesk/backend/internal/identity/handler"
	identityrepo "propertydesk/backend/internal/identity/repository"
	identityservice "propertydesk/backend/internal/identity/service"
	"propertydesk/backend/internal/reaper"
	"propertydesk/backend/internal/security"
	"propertydesk/backend/internal/server"
	"propertydesk/backend/internal/server/middleware"
	sessionhandler "propertydesk/backend/internal/session/handler"
	sessionrepo "propertydesk/backend/internal/session/repository"
	sessionservice "propertydesk/backend/internal/session/service"
	"propertydesk/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "propertydesk-api", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	sessions := sessionrepo.NewPostgresRepository(conn)
	blacklist := blacklistrepo.NewPostgresRepository(conn)
	users := identityrepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)

	auditLogger := audit.MultiLogger{
		audit.NewLogger(audits, middleware.ClientIPFromContext),
		otel.NewAuditEmitter(providers.LoggerProvider),
	}

	lifecycle := sessionservice.NewLifecycle(sessions, cfg.IdleTimeout(), cfg.AbsoluteTimeout(), cfg.MaxSessionsPerUser, auditLogger)
	verifier := identityservice.NewVerifier(users, security.NewHasher(cfg.BcryptCost))

	secureCookie := cfg.Env != "development"
	handler := server.NewHandler(server.Deps{
		Login:        identityhandler.NewHandler(verifier, tokens, lifecycle, auditLogger, secureCookie),
		Sessions:     sessionhandler.NewHandler(lifecycle, secureCookie),
		Health:       healthhandler.NewHandler(conn),
		AuthGate:     middleware.NewAuthGate(tokens, blacklist),
		ActivityGate: middleware.NewActivityGate(lifecycle),
	})

	r := reaper.New(sessions, blacklist, audits, cfg.ReaperTick(), cfg.Grace(), cfg.Retention(), cfg.AuditRetention())
	go r.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
