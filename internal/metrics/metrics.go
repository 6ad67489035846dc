// Package metrics exposes Prometheus instruments for the chat server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strangerly_connections_active",
		Help: "Number of open websocket connections",
	})
	UsersOnline = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "strangerly_users_online",
		Help: "Number of authenticated users in the presence registry",
	})
	MatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strangerly_matches_total",
		Help: "Total number of random pairings made",
	})
	QueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strangerly_queued_total",
		Help: "Match requests that had to wait, by preference bucket",
	}, []string{"bucket"})
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strangerly_messages_total",
		Help: "Chat messages by outcome (relayed, rate_limited, dropped)",
	}, []string{"result"})
	HistoryWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strangerly_history_writes_total",
		Help: "History persistence attempts by outcome (ok, error, dropped)",
	}, []string{"result"})
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strangerly_reports_total",
		Help: "Abuse reports by outcome (accepted, rejected, error)",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		UsersOnline,
		MatchesTotal,
		QueuedTotal,
		MessagesTotal,
		HistoryWritesTotal,
		ReportsTotal,
	)
}
