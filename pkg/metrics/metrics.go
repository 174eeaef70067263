package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ChainFetchTotal counts per-chain balance fetch outcomes.
	ChainFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_chain_fetch_total",
			Help: "Balance fetch outcomes per chain.",
		},
		[]string{"chain", "outcome"},
	)

	// PriceBatchTotal counts price oracle batch outcomes.
	PriceBatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_price_batch_total",
			Help: "Price oracle batch request outcomes.",
		},
		[]string{"outcome"},
	)

	// PriceRetryTotal counts background price retry outcomes.
	PriceRetryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_price_retry_total",
			Help: "Background price retry outcomes.",
		},
		[]string{"outcome"},
	)

	// HistoryFetchTotal counts price-history fetch outcomes.
	HistoryFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_history_fetch_total",
			Help: "Price history fetch outcomes.",
		},
		[]string{"outcome"},
	)
)

// MustRegisterMetrics registers all collectors with the default registry.
func MustRegisterMetrics() {
	prometheus.MustRegister(ChainFetchTotal, PriceBatchTotal, PriceRetryTotal, HistoryFetchTotal)
}
