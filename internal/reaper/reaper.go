// Package reaper purges rows the session layer no longer needs: dead
// sessions, expired blacklist entries, and old audit logs.
package reaper

import (
	"context"
	"log"
	"sync"
	"time"
)

// SessionPurger is the slice of the session repository the reaper needs.
type SessionPurger interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlacklistPurger is the slice of the blacklist repository the reaper needs.
type BlacklistPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// AuditPurger is the slice of the audit repository the reaper needs.
type AuditPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reaper deletes rows past their retention windows on a fixed interval. It
// never runs on the request path.
type Reaper struct {
	sessions  SessionPurger
	blacklist BlacklistPurger
	audits    AuditPurger

	interval       time.Duration
	grace          time.Duration
	retention      time.Duration
	auditRetention time.Duration

	now func() time.Time

	// running is a single-flight guard: if one sweep overruns the interval,
	// the next tick is skipped rather than stacked.
	running sync.Mutex
}

// New returns a Reaper over the given stores. audits may be nil to skip
// audit purging.
func New(sessions SessionPurger, blacklist BlacklistPurger, audits AuditPurger, interval, grace, retention, auditRetention time.Duration) *Reaper {
	return &Reaper{
		sessions:       sessions,
		blacklist:      blacklist,
		audits:         audits,
		interval:       interval,
		grace:          grace,
		retention:      retention,
		auditRetention: auditRetention,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock. For tests only.
func (r *Reaper) SetNow(now func() time.Time) { r.now = now }

// Run sweeps at the configured interval until ctx is cancelled. An
// immediate sweep runs at startup.
func (r *Reaper) Run(ctx context.Context) {
	log.Printf("reaper: running every %s (grace %s, retention %s)", r.interval, r.grace, r.retention)
	r.Sweep(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("reaper: stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs all deletion batches once. Each batch is its own unit: a
// failure is logged and retried next tick, and never blocks the other
// batches. Rows inside their grace window are kept so a request already in
// flight can still resolve its session or blacklist entry.
func (r *Reaper) Sweep(ctx context.Context) {
	if !r.running.TryLock() {
		log.Println("reaper: previous sweep still running, skipping")
		return
	}
	defer r.running.Unlock()

	now := r.now()

	if n, err := r.sessions.DeleteExpiredBefore(ctx, now.Add(-r.grace)); err != nil {
		log.Printf("reaper: delete expired sessions: %v", err)
	} else if n > 0 {
		log.Printf("reaper: deleted %d expired sessions", n)
	}

	if n, err := r.sessions.DeleteInactiveBefore(ctx, now.Add(-r.retention)); err != nil {
		log.Printf("reaper: delete invalidated sessions: %v", err)
	} else if n > 0 {
		log.Printf("reaper: deleted %d invalidated sessions", n)
	}

	if n, err := r.blacklist.DeleteExpired(ctx, now.Add(-r.grace)); err != nil {
		log.Printf("reaper: delete blacklist entries: %v", err)
	} else if n > 0 {
		log.Printf("reaper: deleted %d blacklist entries", n)
	}

	if r.audits != nil {
		if n, err := r.audits.DeleteOlderThan(ctx, now.Add(-r.auditRetention)); err != nil {
			log.Printf("reaper: delete audit logs: %v", err)
		} else if n > 0 {
			log.Printf("reaper: deleted %d audit logs", n)
		}
	}
}
