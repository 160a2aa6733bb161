package metrics

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultPort = "9746"

// Metrics carries the per-job instrumentation of the scheduling loop.
// Each instance owns its registry so tests can build as many as they
// like.
type Metrics struct {
	RunningGauge           *prometheus.GaugeVec
	ExecCounter            *prometheus.CounterVec
	SuccessCounter         *prometheus.CounterVec
	FailCounter            *prometheus.CounterVec
	SpawnErrorCounter      *prometheus.CounterVec
	ExecutionTimeHistogram *prometheus.HistogramVec

	registry *prometheus.Registry
	srv      *http.Server
}

var jobLabels = []string{"command", "position", "schedule"}

func New() *Metrics {
	m := Metrics{registry: prometheus.NewRegistry()}

	m.RunningGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crore_currently_running",
			Help: "count of currently running cron executions",
		},
		jobLabels,
	)
	m.registry.MustRegister(m.RunningGauge)

	m.ExecCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crore_executions",
			Help: "count of cron executions",
		},
		jobLabels,
	)
	m.registry.MustRegister(m.ExecCounter)

	m.SuccessCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crore_successful_executions",
			Help: "count of successful cron executions",
		},
		jobLabels,
	)
	m.registry.MustRegister(m.SuccessCounter)

	m.FailCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crore_failed_executions",
			Help: "count of failed cron executions",
		},
		jobLabels,
	)
	m.registry.MustRegister(m.FailCounter)

	m.SpawnErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crore_spawn_errors",
			Help: "count of cron executions that failed to start",
		},
		jobLabels,
	)
	m.registry.MustRegister(m.SpawnErrorCounter)

	m.ExecutionTimeHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crore_execution_time_seconds",
			Help:    "execution times of the cron runs in buckets",
			Buckets: []float64{0.1, 1.0, 10.0, 30.0, 60.0, 120.0, 300.0, 600.0, 1800.0, 3600.0},
		},
		jobLabels,
	)
	m.registry.MustRegister(m.ExecutionTimeHistogram)

	return &m
}

func (m *Metrics) Reset() {
	m.RunningGauge.Reset()
	m.ExecCounter.Reset()
	m.SuccessCounter.Reset()
	m.FailCounter.Reset()
	m.SpawnErrorCounter.Reset()
	m.ExecutionTimeHistogram.Reset()
}

// Serve binds the listener synchronously so a bad address is reported
// at startup, then serves in the background.
func (m *Metrics) Serve(addr string) error {
	full, err := getAddr(addr)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", full)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
             <head><title>Crore</title></head>
             <body>
             <h1>Crore</h1>
             <p><a href='/metrics'>Metrics</a></p>
             </body>
             </html>`))
	})

	m.srv = &http.Server{Handler: mux}
	go m.srv.Serve(listener)
	return nil
}

func (m *Metrics) Shutdown(c context.Context) error {
	return m.srv.Shutdown(c)
}

// getAddr fills in the default port when the address omits one. A
// bracketed IPv6 host without a port is rejected as ambiguous.
func getAddr(addr string) (string, error) {
	if addr == "" {
		return "", errors.New("empty metrics address")
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr, nil
	}
	if strings.HasPrefix(addr, "[") && strings.HasSuffix(addr, "]") {
		if strings.Contains(addr[1:len(addr)-1], ":") {
			return "", errors.Errorf("ambiguous metrics address %q", addr)
		}
		return addr + ":" + defaultPort, nil
	}
	if strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, defaultPort), nil
	}
	return addr + ":" + defaultPort, nil
}
