// Package metrics exposes Prometheus instrumentation for the live gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "navigo"

var (
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_frames_received_total",
			Help:      "Total media frames received from clients",
		},
		[]string{"medium"},
	)

	framesForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_forwarded_total",
			Help:      "Total media frames forwarded to the backend stream",
		},
		[]string{"medium"},
	)

	outboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Total outbound protocol messages sent to clients",
		},
		[]string{"type"},
	)

	turnsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_completed_total",
			Help:      "Total model turns processed to completion",
		},
	)

	interruptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Total user barge-in interruptions observed",
		},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently running live sessions",
		},
	)
)

var registry = newRegistry()

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		framesReceived,
		framesForwarded,
		outboundMessages,
		turnsCompleted,
		interruptions,
		sessionsActive,
	)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func FrameReceived(medium string)  { framesReceived.WithLabelValues(medium).Inc() }
func FrameForwarded(medium string) { framesForwarded.WithLabelValues(medium).Inc() }
func OutboundSent(msgType string)  { outboundMessages.WithLabelValues(msgType).Inc() }
func TurnCompleted()               { turnsCompleted.Inc() }
func InterruptionObserved()        { interruptions.Inc() }
func SessionStarted()              { sessionsActive.Inc() }
func SessionEnded()                { sessionsActive.Dec() }
