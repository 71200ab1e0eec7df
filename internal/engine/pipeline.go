package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"NetSentinel/internal/dispatch"
	"NetSentinel/internal/mlclient"
	"NetSentinel/internal/model"
	"NetSentinel/internal/rules"
	"NetSentinel/internal/throttle"
	"NetSentinel/internal/tracker"
)

// Config holds the pipeline's runtime settings.
type Config struct {
	NumWorkers   int
	ChannelSize  int
	MLTimeout    time.Duration
	FlowDeadline time.Duration
}

// Engine is the end-to-end detection pipeline: tracker update, parallel rule
// and ML evaluation, confidence refinement, throttling and dispatch. Errors
// local to one flow never abort processing of other flows.
type Engine struct {
	cfg        Config
	tracker    *tracker.Tracker
	rules      *rules.Engine
	classifier model.Classifier
	orch       *Orchestrator
	throttle   *throttle.Throttle
	dispatcher *dispatch.Dispatcher
	history    model.VerdictWriter

	observationCh chan *model.FlowObservation
	workerWg      sync.WaitGroup

	processed  atomic.Uint64
	threats    atomic.Uint64
	suppressed atomic.Uint64
	rejected   atomic.Uint64
}

// New creates a pipeline. classifier and history may be nil when the ML path
// or verdict persistence is disabled.
func New(cfg Config, tr *tracker.Tracker, re *rules.Engine, classifier model.Classifier,
	orch *Orchestrator, th *throttle.Throttle, di *dispatch.Dispatcher, history model.VerdictWriter) *Engine {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 4
	}
	if cfg.ChannelSize <= 0 {
		cfg.ChannelSize = 1000
	}
	return &Engine{
		cfg:           cfg,
		tracker:       tr,
		rules:         re,
		classifier:    classifier,
		orch:          orch,
		throttle:      th,
		dispatcher:    di,
		history:       history,
		observationCh: make(chan *model.FlowObservation, cfg.ChannelSize),
	}
}

// Input returns the channel to which observations should be sent.
func (e *Engine) Input() chan<- *model.FlowObservation {
	return e.observationCh
}

// Start launches the tracker eviction loop and the observation workers.
func (e *Engine) Start() {
	e.tracker.Start()
	e.workerWg.Add(e.cfg.NumWorkers)
	for i := 0; i < e.cfg.NumWorkers; i++ {
		go e.worker()
	}
	log.Printf("Engine started with %d workers.", e.cfg.NumWorkers)
}

// Stop drains buffered observations and shuts the pipeline down.
func (e *Engine) Stop() {
	close(e.observationCh)
	e.workerWg.Wait()
	e.tracker.Stop()
	log.Println("Engine stopped.")
}

func (e *Engine) worker() {
	defer e.workerWg.Done()
	for obs := range e.observationCh {
		e.handle(obs)
	}
}

func (e *Engine) handle(obs *model.FlowObservation) {
	ctx := context.Background()
	if e.cfg.FlowDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.FlowDeadline)
		defer cancel()
	}

	v, err := e.Process(ctx, obs)
	if err != nil {
		e.rejected.Add(1)
		log.Printf("Warning: observation rejected: %v", err)
		return
	}

	if e.history != nil {
		if err := e.history.Write(v); err != nil {
			log.Printf("Warning: failed to persist verdict %s: %v", v.ID, err)
		}
	}

	if !v.ThreatDetected {
		return
	}
	e.threats.Add(1)

	if !e.throttle.ShouldEmit(v.SrcIP, v.AttackType, v.Timestamp) {
		e.suppressed.Add(1)
		return
	}
	if res := e.dispatcher.Dispatch(ctx, v); res.Err != nil {
		log.Printf("Warning: verdict %s dispatched with errors: %v", v.ID, res.Err)
	}
}

// Process runs the full detection pipeline for one observation and returns
// its verdict. The rule-engine path and the ML path run concurrently; if the
// ML call fails or the deadline expires, the decision proceeds with rule
// signals only.
func (e *Engine) Process(ctx context.Context, obs *model.FlowObservation) (*model.Verdict, error) {
	snap, err := e.tracker.Update(obs)
	if err != nil {
		return nil, err
	}
	e.processed.Add(1)

	type mlOutcome struct {
		sig model.ClassificationSignal
		err error
	}
	var mlCh chan mlOutcome
	if e.classifier != nil {
		mlCh = make(chan mlOutcome, 1)
		go func() {
			mlCtx := ctx
			if e.cfg.MLTimeout > 0 {
				var cancel context.CancelFunc
				mlCtx, cancel = context.WithTimeout(ctx, e.cfg.MLTimeout)
				defer cancel()
			}
			sig, err := e.classifier.Classify(mlCtx, mlclient.Features(obs, snap))
			mlCh <- mlOutcome{sig: sig, err: err}
		}()
	}

	ruleSignals := e.rules.Evaluate(obs, snap)

	var mlSignal *model.ClassificationSignal
	if mlCh != nil {
		select {
		case out := <-mlCh:
			if out.err != nil {
				log.Printf("Warning: ML classification unavailable for %s, using rule signals only: %v", obs.SrcIP, out.err)
			} else {
				mlSignal = &out.sig
			}
		case <-ctx.Done():
			log.Printf("Warning: flow deadline reached before ML response for %s, using rule signals only", obs.SrcIP)
		}
	}

	return e.orch.Decide(obs, ruleSignals, mlSignal), nil
}

// Stats is a point-in-time view of pipeline counters for the admin API.
type Stats struct {
	Processed      uint64 `json:"processed"`
	Threats        uint64 `json:"threats"`
	Suppressed     uint64 `json:"suppressed"`
	Rejected       uint64 `json:"rejected"`
	TrackedSources int    `json:"tracked_sources"`
	ActiveCooldown int    `json:"active_cooldowns"`
}

// Stats returns the current pipeline counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Processed:      e.processed.Load(),
		Threats:        e.threats.Load(),
		Suppressed:     e.suppressed.Load(),
		Rejected:       e.rejected.Load(),
		TrackedSources: e.tracker.TrackedSources(),
		ActiveCooldown: e.throttle.Active(),
	}
}
