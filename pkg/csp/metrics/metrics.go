// Package metrics exposes Prometheus collectors for process networks and
// channels. Collectors are registered on the Registerer passed in; a nil
// Registerer builds unregistered collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Network holds the collectors of one process network.
type Network struct {
	Started  prometheus.Counter
	Active   prometheus.Gauge
	Exits    *prometheus.CounterVec
	Duration prometheus.Histogram
}

func NewNetwork(reg prometheus.Registerer, network string) *Network {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"network": network}

	return &Network{
		Started: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "csp_processes_started_total",
				Help:        "Total number of processes started",
				ConstLabels: labels,
			},
		),
		Active: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "csp_processes_active",
				Help:        "Number of processes currently in the network",
				ConstLabels: labels,
			},
		),
		Exits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "csp_process_exits_total",
				Help:        "Total number of process exits by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "csp_process_duration_seconds",
				Help:        "Process run duration in seconds",
				ConstLabels: labels,
				Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
	}
}

func (m *Network) ProcessStarted() {
	m.Started.Inc()
	m.Active.Inc()
}

func (m *Network) ProcessExited(outcome string, d time.Duration) {
	m.Exits.WithLabelValues(outcome).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Network) ProcessRemoved() {
	m.Active.Dec()
}

// Channels counts channel traffic by channel name. It satisfies channel.Observer.
type Channels struct {
	WritesTotal  *prometheus.CounterVec
	ReadsTotal   *prometheus.CounterVec
	BlockedTotal *prometheus.CounterVec
	ClosedTotal  *prometheus.CounterVec
}

func NewChannels(reg prometheus.Registerer) *Channels {
	factory := promauto.With(reg)

	return &Channels{
		WritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csp_channel_writes_total",
				Help: "Total number of completed channel writes",
			},
			[]string{"channel"},
		),
		ReadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csp_channel_reads_total",
				Help: "Total number of completed channel reads",
			},
			[]string{"channel"},
		),
		BlockedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csp_channel_blocked_total",
				Help: "Total number of times a reader or writer had to wait",
			},
			[]string{"channel", "op"},
		),
		ClosedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csp_channel_closed_total",
				Help: "Total number of channel closes",
			},
			[]string{"channel"},
		),
	}
}

func (c *Channels) Wrote(channel string) {
	c.WritesTotal.WithLabelValues(channel).Inc()
}

func (c *Channels) Read(channel string) {
	c.ReadsTotal.WithLabelValues(channel).Inc()
}

func (c *Channels) Blocked(channel, op string) {
	c.BlockedTotal.WithLabelValues(channel, op).Inc()
}

func (c *Channels) Closed(channel string) {
	c.ClosedTotal.WithLabelValues(channel).Inc()
}
