package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerMetrics holds the prometheus instruments for the ledger.
type LedgerMetrics struct {
	TransactionsTotal       *prometheus.CounterVec
	TransactionAmountTotal  *prometheus.CounterVec
	SpendsRejectedTotal     *prometheus.CounterVec
	PackagesPurchasedTotal  *prometheus.CounterVec
	GiftsActivatedTotal     *prometheus.CounterVec
	RotationRunsTotal       *prometheus.CounterVec
	RotationDuration        *prometheus.HistogramVec
	RankCacheHitsTotal      prometheus.Counter
	RankCacheMissesTotal    prometheus.Counter
}

func NewLedgerMetrics() *LedgerMetrics {
	return &LedgerMetrics{
		TransactionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Transactions appended to the ledger, by type",
		}, []string{"type"}),
		TransactionAmountTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transaction_amount_total",
			Help: "Absolute transaction amounts appended, by type",
		}, []string{"type"}),
		SpendsRejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_spends_rejected_total",
			Help: "Spends rejected, by reason",
		}, []string{"reason"}),
		PackagesPurchasedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "promotion_packages_purchased_total",
			Help: "Promotion packages purchased, by city and tier",
		}, []string{"city", "tier"}),
		GiftsActivatedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gifts_activated_total",
			Help: "Gifts activated, by gift type",
		}, []string{"gift_type"}),
		RotationRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "promotion_rotation_runs_total",
			Help: "Daily rotation runs, by city and outcome",
		}, []string{"city", "outcome"}),
		RotationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promotion_rotation_duration_seconds",
			Help:    "Duration of one city rotation tick",
			Buckets: prometheus.DefBuckets,
		}, []string{"city"}),
		RankCacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rank_cache_hits_total",
			Help: "Catalog rank reads served from cache",
		}),
		RankCacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rank_cache_misses_total",
			Help: "Catalog rank reads recomputed from storage",
		}),
	}
}
