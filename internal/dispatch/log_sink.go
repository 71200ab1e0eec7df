package dispatch

import (
	"context"
	"log"

	"NetSentinel/internal/model"
)

// LogSink writes dispatched verdicts to the process log. It is the default
// sink when no external mitigation collaborator is configured.
type LogSink struct{}

// NewLogSink creates a log sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Emit(_ context.Context, v *model.Verdict) error {
	log.Printf("THREAT DETECTED: %s from %s to %s | confidence=%.2f severity=%s action=%s",
		v.AttackType, v.SrcIP, v.DstIP, v.Confidence, v.Severity, v.RecommendedAction)
	return nil
}
