package chatbot

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestWithSessionCreatesWithDefaults(t *testing.T) {
	s := NewStore()

	err := s.WithSession("fresh", func(sess *Session, created bool) error {
		if !created {
			t.Fatal("expected created=true for new session")
		}
		if sess.State != StateGreeting {
			t.Fatalf("initial state: %s", sess.State)
		}
		if sess.Data.Name != "User" {
			t.Fatalf("initial name: %q", sess.Data.Name)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with session: %v", err)
	}

	err = s.WithSession("fresh", func(_ *Session, created bool) error {
		if created {
			t.Fatal("expected created=false for existing session")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len: %d", s.Len())
	}
}

func TestWithSessionRefreshesLastInteraction(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	_ = s.WithSession("s", func(_ *Session, _ bool) error { return nil })

	s.now = func() time.Time { return base.Add(time.Minute) }
	_ = s.WithSession("s", func(_ *Session, _ bool) error { return nil })

	sess, ok := s.Get("s")
	if !ok {
		t.Fatal("session missing")
	}
	if !sess.LastInteraction.Equal(base.Add(time.Minute)) {
		t.Fatalf("last interaction: %v", sess.LastInteraction)
	}
}

func TestEvictIdleBoundary(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	timeout := 5 * time.Minute

	s.now = func() time.Time { return base }
	_ = s.WithSession("old", func(_ *Session, _ bool) error { return nil })

	s.now = func() time.Time { return base.Add(time.Minute) }
	_ = s.WithSession("young", func(_ *Session, _ bool) error { return nil })

	// "old" 刚好在阈值上，不回收；超过阈值才回收。
	s.now = func() time.Time { return base.Add(timeout) }
	if evicted := s.EvictIdle(timeout); len(evicted) != 0 {
		t.Fatalf("evicted at exact timeout: %v", evicted)
	}

	s.now = func() time.Time { return base.Add(timeout + time.Second) }
	evicted := s.EvictIdle(timeout)
	if len(evicted) != 1 || evicted[0] != "old" {
		t.Fatalf("evicted: %v", evicted)
	}
	if _, ok := s.Get("old"); ok {
		t.Fatal("old session still present")
	}
	if _, ok := s.Get("young"); !ok {
		t.Fatal("young session evicted")
	}
}

func TestReaperSweepClearsProgress(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewStore()
	progress := NewTracker()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	_ = store.WithSession("stale", func(_ *Session, _ bool) error { return nil })
	progress.Update("stale", MilestoneSkills)

	r := NewReaper(store, progress, time.Minute, time.Minute, logger)
	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	r.Sweep()

	if store.Len() != 0 {
		t.Fatalf("store len after sweep: %d", store.Len())
	}
	if got := progress.Get("stale"); got != 0 {
		t.Fatalf("progress after sweep: %v", got)
	}
}

func TestReaperStopWaitsForSweepInFlight(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewStore()
	progress := NewTracker()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	_ = store.WithSession("stale", func(_ *Session, _ bool) error { return nil })

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	store.now = func() time.Time {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return base.Add(time.Hour)
	}

	r := NewReaper(store, progress, 5*time.Millisecond, time.Minute, logger)
	r.Start()
	<-entered

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a sweep was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
}

func TestReaperStartStopIdempotent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewReaper(NewStore(), NewTracker(), time.Hour, time.Hour, logger)

	// 未启动时 Stop 是空操作。
	r.Stop()

	r.Start()
	r.Start()
	r.Stop()

	// 停止后可以再次启动。
	r.Start()
	r.Stop()
}
