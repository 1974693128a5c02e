package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	flushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildvault_flushes_total",
		Help: "Vault flushes by result",
	}, []string{"result"})

	saveAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildvault_save_attempts_total",
		Help: "Durable storage calls made by the retrying save, by operation",
	}, []string{"op"})

	saveFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildvault_save_failures_total",
		Help: "Saves that exhausted every retry, by operation",
	}, []string{"op"})

	desyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guildvault_desyncs_total",
		Help: "View slots found out of sync with the cache and repaired",
	})

	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildvault_broadcasts_total",
		Help: "Slot pushes to viewers, by kind",
	}, []string{"kind"})

	cachedVaultsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guildvault_cached_vaults",
		Help: "Vaults currently held in memory",
	})

	activeViewersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guildvault_active_viewers",
		Help: "Registered viewer sessions",
	})
)
