package model

import "context"

// VerdictSink is an external collaborator that receives dispatched verdicts
// (mitigation controllers, notification channels, real-time feeds).
type VerdictSink interface {
	// Emit delivers one verdict. Errors are reported to the dispatcher and
	// never invalidate the verdict.
	Emit(ctx context.Context, v *Verdict) error

	// Name identifies the sink in logs and dispatch results.
	Name() string
}

// VerdictWriter persists verdict records for history and audit. Unlike a
// VerdictSink it receives every verdict, including throttled ones.
type VerdictWriter interface {
	Write(v *Verdict) error
}
