package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/vescflow/internal/ports"
)

// Metric names understood by PromObs.
const (
	MetricFramesReceived   = "vescflow_frames_received_total"
	MetricFramesUnknown    = "vescflow_frames_unrecognized_total"
	MetricFramesTruncated  = "vescflow_frames_truncated_total"
	MetricReceiveTimeouts  = "vescflow_receive_timeouts_total"
	MetricReconnects       = "vescflow_reconnects_total"
	MetricSubscriberPanics = "vescflow_subscriber_panics_total"
	MetricPipelineLatency  = "vescflow_pipeline_latency_seconds"

	GaugeRPM     = "vescflow_rpm"
	GaugeVoltage = "vescflow_voltage_volts"
	GaugeDuty    = "vescflow_duty"
	GaugeTempFET = "vescflow_temp_fet_celsius"
	GaugePower   = "vescflow_power_watts"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricFramesReceived,
		Help: "Raw frames pulled from the active frame source.",
	})
	unknown := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricFramesUnknown,
		Help: "Frames dropped because their CAN ID is outside the status set.",
	})
	truncated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricFramesTruncated,
		Help: "Frames dropped because the payload was shorter than the frame kind requires.",
	})
	timeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricReceiveTimeouts,
		Help: "Receive calls that returned without a frame.",
	})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricReconnects,
		Help: "Reopen attempts after a fatal transport error.",
	})
	panics := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricSubscriberPanics,
		Help: "Subscriber callbacks that panicked during notification.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricPipelineLatency,
		Help:    "Latency from frame receive to snapshot publish.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
	})

	rpm := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: GaugeRPM,
		Help: "Latest published rotor RPM.",
	})
	voltage := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: GaugeVoltage,
		Help: "Latest published battery voltage.",
	})
	duty := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: GaugeDuty,
		Help: "Latest published duty cycle (0..1).",
	})
	tempFET := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: GaugeTempFET,
		Help: "Latest published MOSFET temperature.",
	})
	power := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: GaugePower,
		Help: "Derived instantaneous power.",
	})

	prometheus.MustRegister(received, unknown, truncated, timeouts, reconnects,
		panics, latency, rpm, voltage, duty, tempFET, power)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			MetricFramesReceived:   received,
			MetricFramesUnknown:    unknown,
			MetricFramesTruncated:  truncated,
			MetricReceiveTimeouts:  timeouts,
			MetricReconnects:       reconnects,
			MetricSubscriberPanics: panics,
		},
		gauges: map[string]prometheus.Gauge{
			GaugeRPM:     rpm,
			GaugeVoltage: voltage,
			GaugeDuty:    duty,
			GaugeTempFET: tempFET,
			GaugePower:   power,
		},
		histos: map[string]prometheus.Observer{
			MetricPipelineLatency: latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v", msg, err)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

var _ ports.Observability = (*PromObs)(nil)
