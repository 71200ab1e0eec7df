package dispatch

import (
	"context"
	"fmt"
	"log"

	"NetSentinel/internal/model"
)

// Dispatcher fans a verdict out to the configured response sinks. It carries
// no detection logic: detection and response are decoupled, so a sink outage
// never rolls back or suppresses an already-computed verdict.
type Dispatcher struct {
	sinks []model.VerdictSink
}

// New creates a dispatcher over the given sinks.
func New(sinks ...model.VerdictSink) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

// Dispatch emits the verdict to every sink and reports the aggregate outcome.
// Individual sink failures are logged and collected into ErrDispatchFailed;
// remaining sinks still receive the verdict.
func (d *Dispatcher) Dispatch(ctx context.Context, v *model.Verdict) model.DispatchResult {
	res := model.DispatchResult{
		VerdictID: v.ID,
		Action:    v.RecommendedAction,
	}

	failed := 0
	for _, sink := range d.sinks {
		if err := sink.Emit(ctx, v); err != nil {
			failed++
			log.Printf("Warning: sink %s failed for verdict %s: %v", sink.Name(), v.ID, err)
			continue
		}
		res.Delivered++
	}
	if failed > 0 {
		res.Err = fmt.Errorf("%w: %d of %d sinks failed", model.ErrDispatchFailed, failed, len(d.sinks))
	}
	return res
}
