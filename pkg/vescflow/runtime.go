package vescflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/vescflow/internal/adapters/observability"
	"github.com/ghalamif/vescflow/internal/adapters/sim"
	"github.com/ghalamif/vescflow/internal/adapters/socketcan"
	"github.com/ghalamif/vescflow/internal/aggregate"
	"github.com/ghalamif/vescflow/internal/app/config"
	"github.com/ghalamif/vescflow/internal/app/pipeline"
	"github.com/ghalamif/vescflow/internal/ports"
	"github.com/ghalamif/vescflow/internal/publish"
)

// Re-exported lifecycle errors.
var (
	ErrNotStopped     = pipeline.ErrNotStopped
	ErrAlreadyRunning = pipeline.ErrAlreadyRunning
)

// State re-exports the manager lifecycle state.
type State = pipeline.State

const (
	StateStopped  = pipeline.StateStopped
	StateStarting = pipeline.StateStarting
	StateRunning  = pipeline.StateRunning
	StateStopping = pipeline.StateStopping
	StateFaulted  = pipeline.StateFaulted
)

// Stats re-exports the receive loop counters.
type Stats = pipeline.Stats

// SimSource is the virtual frame source; Runtime.Simulator returns it in
// virtual mode so callers can drive throttle and brake.
type SimSource = sim.Source

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source        ports.FrameSource
	observability ports.Observability
	subscribers   []ports.Subscriber
}

// WithSource injects a custom frame source (log replay, test rigs, other
// transports). It overrides the mode configured in Config.
func WithSource(src FrameSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.source = src
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithSubscriber registers a subscriber at construction time, before the
// first snapshot is published.
func WithSubscriber(s Subscriber) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.subscribers = append(o.subscribers, s)
	}
}

// Runtime wires the frame source → decoder → aggregator → publisher pipeline
// and exposes lifecycle hooks for embedding vescflow inside any Go service.
type Runtime struct {
	cfg        *Config
	obs        ports.Observability
	publisher  *publish.Publisher
	manager    *pipeline.Manager
	vehicle    Vehicle
	simulator  *sim.Source
	metricsSrv *http.Server
}

// NewRuntime bootstraps the default adapters (SocketCAN or simulator frame
// source, Prometheus observability) according to the config. RuntimeOption
// values override any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	rt := &Runtime{
		cfg:     cfg,
		obs:     obs,
		vehicle: cfg.Vehicle.Vehicle(),
	}

	src := overrides.source
	if src == nil {
		switch cfg.Mode {
		case config.ModeVirtual:
			rt.simulator = sim.New(cfg.Sim)
			src = rt.simulator
		case config.ModeCAN:
			src = socketcan.New(cfg.CAN)
		default:
			return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
		}
	}

	rt.publisher = publish.New(obs)
	for _, s := range overrides.subscribers {
		rt.publisher.Subscribe(s)
	}
	rt.manager = pipeline.NewManager(src, aggregate.New(), rt.publisher, obs, pipeline.Config{
		ReceiveTimeout:    cfg.Manager.ReceiveTimeout,
		ReconnectAttempts: cfg.Manager.ReconnectAttempts,
		ReconnectBackoff:  cfg.Manager.ReconnectBackoff,
	})

	return rt, nil
}

// Start launches the receive loop and the metrics server. It returns
// immediately; call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if err := r.manager.Start(); err != nil {
		return err
	}
	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the receive loop and the metrics server.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := r.manager.Stop(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Restart re-arms the pipeline after a transport fault.
func (r *Runtime) Restart() error {
	return r.manager.Start()
}

// State returns the pipeline lifecycle state.
func (r *Runtime) State() State { return r.manager.State() }

// Stats returns the receive loop counters.
func (r *Runtime) Stats() Stats { return r.manager.Stats() }

// Latest returns the most recently published snapshot by value.
func (r *Runtime) Latest() Snapshot { return r.publisher.Latest() }

// Report returns the latest snapshot with derived values flattened in.
func (r *Runtime) Report() Report { return ReportFrom(r.Latest(), r.vehicle) }

// Subscribe registers an observer for snapshot changes.
func (r *Runtime) Subscribe(s Subscriber) uint64 { return r.publisher.Subscribe(s) }

// SubscribeFunc registers a plain function as a subscriber.
func (r *Runtime) SubscribeFunc(fn func(Snapshot, ChangeSet)) uint64 {
	return r.publisher.Subscribe(SubscriberFunc(fn))
}

// Unsubscribe removes a previously registered observer.
func (r *Runtime) Unsubscribe(id uint64) { r.publisher.Unsubscribe(id) }

// Simulator returns the virtual frame source, or nil in hardware mode.
func (r *Runtime) Simulator() *SimSource { return r.simulator }

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r.Report()); err != nil {
			r.obs.LogError("snapshot_encode_failed", err)
		}
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}
