// Package metrics exposes supervisor and field telemetry to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"irrigation_controller/internal/broker"
)

const namespace = "irrigation"

// Metrics owns its registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	pumpCommands *prometheus.CounterVec

	records     prometheus.Counter
	soilPct     prometheus.Gauge
	soilRaw     prometheus.Gauge
	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	pumpOn      prometheus.Gauge
	lastRecord  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		pumpCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_commands_total",
			Help:      "Operator pump commands by action and HTTP status.",
		}, []string{"action", "status"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_records_total",
			Help:      "Telemetry records received from the controller.",
		}),
		soilPct:     gauge("soil_moisture_percent", "Last reported soil moisture."),
		soilRaw:     gauge("soil_moisture_raw", "Last raw soil ADC value."),
		temperature: gauge("air_temperature_celsius", "Last reported air temperature."),
		humidity:    gauge("air_humidity_percent", "Last reported relative humidity."),
		pumpOn:      gauge("pump_on", "1 while the pump is running."),
		lastRecord:  gauge("last_record_timestamp_seconds", "Unix time of the last telemetry record."),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.pumpCommands,
		m.records,
		m.soilPct,
		m.soilRaw,
		m.temperature,
		m.humidity,
		m.pumpOn,
		m.lastRecord,
	)
	return m
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency keyed by the matched route
// pattern, so path parameters do not explode the label space.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// PumpCommand counts one operator command.
func (m *Metrics) PumpCommand(action string, status int) {
	if m == nil {
		return
	}
	m.pumpCommands.WithLabelValues(action, strconv.Itoa(status)).Inc()
}

// Publish updates the field gauges. It makes Metrics usable as a broker sink.
func (m *Metrics) Publish(_ context.Context, env broker.Envelope) error {
	rec := env.Record
	m.records.Inc()
	m.soilPct.Set(float64(rec.SoilMoisture))
	m.soilRaw.Set(float64(rec.SoilMoistureRaw))
	m.temperature.Set(rec.Temperature)
	m.humidity.Set(rec.Humidity)
	if rec.PumpOn() {
		m.pumpOn.Set(1)
	} else {
		m.pumpOn.Set(0)
	}
	m.lastRecord.Set(float64(env.ReceivedAt.Unix()))
	return nil
}

func (m *Metrics) Close() error { return nil }

var _ broker.Sink = (*Metrics)(nil)
