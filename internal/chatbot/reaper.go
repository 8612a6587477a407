package chatbot

import (
	"log/slog"
	"sync"
	"time"

	"chatResume/internal/metrics"
)

// Reaper 周期性回收空闲超时的会话。扫描周期与过期阈值相互独立。
type Reaper struct {
	store    *Store
	progress *Tracker
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReaper 构造清扫器，不启动。
func NewReaper(store *Store, progress *Tracker, interval, timeout time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		store:    store,
		progress: progress,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start 启动后台清扫循环；已在运行时为空操作。
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopCh != nil {
		return
	}
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go r.loop(r.stopCh, r.doneCh)
	r.logger.Info("session reaper started",
		slog.Duration("interval", r.interval),
		slog.Duration("timeout", r.timeout),
	)
}

// Stop 终止清扫循环，并阻塞到进行中的那一轮扫描结束。
// 未在运行时为空操作。
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopCh == nil {
		return
	}
	close(r.stopCh)
	<-r.doneCh
	r.stopCh = nil
	r.doneCh = nil
	r.logger.Info("session reaper stopped")
}

func (r *Reaper) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep 执行一轮扫描：回收空闲超时的会话并清除其进度记录。
func (r *Reaper) Sweep() {
	evicted := r.store.EvictIdle(r.timeout)
	if len(evicted) == 0 {
		return
	}

	for _, id := range evicted {
		r.progress.Reset(id)
	}
	metrics.SessionsEvictedTotal.Add(float64(len(evicted)))
	r.logger.Info("evicted idle sessions", slog.Int("count", len(evicted)))
}
