package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSessionPurger struct {
	mu              sync.Mutex
	expiredCutoff   time.Time
	inactiveCutoff  time.Time
	expiredErr      error
	expiredCalls    int
	inactiveCalls   int
	blockExpiredFor chan struct{}
}

func (f *fakeSessionPurger) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	f.expiredCalls++
	f.expiredCutoff = cutoff
	blocker := f.blockExpiredFor
	err := f.expiredErr
	f.mu.Unlock()
	if blocker != nil {
		<-blocker
	}
	return 1, err
}

func (f *fakeSessionPurger) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inactiveCalls++
	f.inactiveCutoff = cutoff
	return 1, nil
}

type fakeBlacklistPurger struct {
	mu     sync.Mutex
	cutoff time.Time
	calls  int
}

func (f *fakeBlacklistPurger) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cutoff = before
	return 1, nil
}

type fakeAuditPurger struct {
	mu     sync.Mutex
	cutoff time.Time
	calls  int
}

func (f *fakeAuditPurger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cutoff = cutoff
	return 1, nil
}

// Scenario: grace of 1h keeps rows that expired less than an hour ago. The
// reaper expresses that by passing now-grace cutoffs to the stores.
func TestSweep_GraceWindowCutoffs(t *testing.T) {
	sessions := &fakeSessionPurger{}
	blacklist := &fakeBlacklistPurger{}
	audits := &fakeAuditPurger{}

	grace := time.Hour
	retention := 24 * time.Hour
	auditRetention := 90 * 24 * time.Hour
	r := New(sessions, blacklist, audits, time.Hour, grace, retention, auditRetention)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.SetNow(func() time.Time { return now })

	r.Sweep(context.Background())

	if got, want := sessions.expiredCutoff, now.Add(-grace); !got.Equal(want) {
		t.Errorf("expired-session cutoff = %v, want %v", got, want)
	}
	if got, want := sessions.inactiveCutoff, now.Add(-retention); !got.Equal(want) {
		t.Errorf("inactive-session cutoff = %v, want %v", got, want)
	}
	if got, want := blacklist.cutoff, now.Add(-grace); !got.Equal(want) {
		t.Errorf("blacklist cutoff = %v, want %v", got, want)
	}
	if got, want := audits.cutoff, now.Add(-auditRetention); !got.Equal(want) {
		t.Errorf("audit cutoff = %v, want %v", got, want)
	}
}

// One failing batch must not block the others.
func TestSweep_BatchIsolationOnFailure(t *testing.T) {
	sessions := &fakeSessionPurger{expiredErr: errors.New("db down")}
	blacklist := &fakeBlacklistPurger{}
	audits := &fakeAuditPurger{}
	r := New(sessions, blacklist, audits, time.Hour, time.Hour, 24*time.Hour, 90*24*time.Hour)

	r.Sweep(context.Background())

	if sessions.inactiveCalls != 1 {
		t.Error("inactive-session batch skipped after expired-session failure")
	}
	if blacklist.calls != 1 {
		t.Error("blacklist batch skipped after expired-session failure")
	}
	if audits.calls != 1 {
		t.Error("audit batch skipped after expired-session failure")
	}
}

// An overrunning sweep makes the next tick a no-op instead of stacking.
func TestSweep_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	sessions := &fakeSessionPurger{blockExpiredFor: release}
	blacklist := &fakeBlacklistPurger{}
	r := New(sessions, blacklist, nil, time.Hour, time.Hour, 24*time.Hour, 0)

	done := make(chan struct{})
	go func() {
		r.Sweep(context.Background())
		close(done)
	}()

	// Wait for the first sweep to be inside the session batch.
	for {
		sessions.mu.Lock()
		started := sessions.expiredCalls == 1
		sessions.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	r.Sweep(context.Background()) // must return immediately, skipped

	sessions.mu.Lock()
	calls := sessions.expiredCalls
	sessions.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expired-session batch ran %d times during overlap, want 1", calls)
	}

	close(release)
	<-done

	if blacklist.calls != 1 {
		t.Errorf("blacklist batch calls = %d, want 1 (from the first sweep only)", blacklist.calls)
	}
}

func TestSweep_NilAuditPurgerSkipped(t *testing.T) {
	sessions := &fakeSessionPurger{}
	blacklist := &fakeBlacklistPurger{}
	r := New(sessions, blacklist, nil, time.Hour, time.Hour, 24*time.Hour, 0)

	r.Sweep(context.Background())

	if sessions.expiredCalls != 1 || blacklist.calls != 1 {
		t.Error("other batches must still run without an audit purger")
	}
}
