package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions 当前存活的会话数量。
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatresume",
			Subsystem: "chatbot",
			Name:      "active_sessions",
			Help:      "当前存活的会话数量。",
		},
	)

	// SessionsEvictedTotal 被后台清扫回收的会话总数。
	SessionsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chatresume",
			Subsystem: "chatbot",
			Name:      "sessions_evicted_total",
			Help:      "被后台清扫回收的会话总数。",
		},
	)

	// MessagesProcessedTotal 按状态统计的消息处理总数。
	MessagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatresume",
			Subsystem: "chatbot",
			Name:      "messages_processed_total",
			Help:      "按状态统计的消息处理总数。",
		},
		[]string{"state"},
	)
)
