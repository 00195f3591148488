// reaper purges dead sessions, expired blacklist entries, and old audit
// logs on a fixed interval. Run standalone when the API server's built-in
// reaper is disabled, or with -once for a single sweep (e.g. from cron).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	auditrepo "propertydesk/backend/internal/audit/repository"
	blacklistrepo "propertydesk/backend/internal/blacklist/repository"
	"propertydesk/backend/internal/config"
	"propertydesk/backend/internal/db"
	"propertydesk/backend/internal/reaper"
	sessionrepo "propertydesk/backend/internal/session/repository"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("reaper: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	r := reaper.New(
		sessionrepo.NewPostgresRepository(conn),
		blacklistrepo.NewPostgresRepository(conn),
		auditrepo.NewPostgresRepository(conn),
		cfg.ReaperTick(), cfg.Grace(), cfg.Retention(), cfg.AuditRetention(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		r.Sweep(ctx)
		return
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("reaper: shutting down...")
		cancel()
	}()

	r.Run(ctx)
}
