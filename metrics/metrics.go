// Package metrics exposes prometheus collectors for the client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks attempts issued per transport and method
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objstore_requests_total",
			Help: "Total number of request attempts",
		},
		[]string{"transport", "method"},
	)

	// RequestErrorsTotal tracks failed attempts per transport and method
	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objstore_request_errors_total",
			Help: "Total number of failed request attempts",
		},
		[]string{"transport", "method", "error_type"},
	)

	// RequestLatency tracks attempt latency
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "objstore_request_latency_seconds",
			Help:    "Request attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport", "method"},
	)

	// RetriesTotal tracks retry attempts per operation
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objstore_retries_total",
			Help: "Total number of retry attempts after a transient failure",
		},
		[]string{"operation"},
	)

	// TransferPartsTotal tracks chunked transfer parts by terminal status
	TransferPartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objstore_transfer_parts_total",
			Help: "Total number of transfer parts by outcome",
		},
		[]string{"direction", "status"},
	)

	// TransferBytesTotal tracks bytes moved by chunked transfers
	TransferBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objstore_transfer_bytes_total",
			Help: "Total bytes moved by chunked transfers",
		},
		[]string{"direction"},
	)
)
