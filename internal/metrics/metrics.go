package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comanda_orders_parsed_total",
			Help: "Total number of order messages parsed, by detected dialect",
		},
		[]string{"dialect"},
	)

	OrdersEmpty = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comanda_orders_empty_total",
			Help: "Total number of messages from which no line item was recovered",
		},
	)

	ItemBlocksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comanda_item_blocks_skipped_total",
			Help: "Total number of item sub-blocks skipped because the header did not match",
		},
	)

	PricesEstimated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comanda_prices_estimated_total",
			Help: "Total number of line items priced with the fallback estimate",
		},
	)

	ParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comanda_parse_duration_seconds",
			Help:    "Duration of parsing one message, price lookups included",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)
