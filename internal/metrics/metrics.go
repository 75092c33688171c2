// Package metrics содержит Prometheus-метрики сервиса выставления счетов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "invoice_service"

var (
	// HTTPRequests считает обработанные запросы.
	// Labels: method, route (шаблон chi, например "/api/v1/invoices"), status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration измеряет длительность обработки запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// InvoicesRegistered считает успешно сохранённые счета.
	InvoicesRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_registered_total",
			Help:      "Total invoices registered",
		},
	)
)
