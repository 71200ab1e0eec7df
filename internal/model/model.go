package model

import (
	"fmt"
	"net"
	"time"
)

// IP protocol numbers carried in a FlowObservation (IANA assignments).
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// TCP flag bits as extracted from the packet header.
const (
	FlagFIN uint8 = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
)

// AttackTypeNormal is the verdict attack type when no evaluator produced a
// signal above the minimum confidence.
const AttackTypeNormal = "Normal"

// FlowObservation is a single inbound flow event produced by a capture probe
// or a test harness. It is immutable once created.
type FlowObservation struct {
	Timestamp  time.Time     `json:"timestamp"`
	SrcIP      net.IP        `json:"src_ip"`
	DstIP      net.IP        `json:"dst_ip"`
	SrcPort    uint16        `json:"src_port"`
	DstPort    uint16        `json:"dst_port"`
	Protocol   uint8         `json:"protocol"`
	TCPFlags   uint8         `json:"tcp_flags"`
	PacketSize int           `json:"packet_size"`
	Duration   time.Duration `json:"duration"`
}

// Validate rejects malformed observations before any state mutation.
func (o *FlowObservation) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: nil observation", ErrInvalidObservation)
	}
	if len(o.SrcIP) == 0 || o.SrcIP.IsUnspecified() {
		return fmt.Errorf("%w: missing source IP", ErrInvalidObservation)
	}
	if o.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidObservation)
	}
	return nil
}

// FlowStateSnapshot is an immutable view of a source IP's tracked behavior
// within the sliding window, taken at the moment of an update.
type FlowStateSnapshot struct {
	SrcIP            string    `json:"src_ip"`
	TotalConnections int       `json:"total_connections"`
	UniquePorts      int       `json:"unique_ports"`
	FailedAttempts   int       `json:"failed_attempts"`
	ConnectionRate   float64   `json:"connection_rate"`
	WindowSeconds    float64   `json:"window_seconds"`
	LastSeen         time.Time `json:"last_seen"`
}

// SignalSource identifies which evaluator produced a ClassificationSignal.
type SignalSource string

const (
	SignalSourceRule SignalSource = "rule"
	SignalSourceML   SignalSource = "ml"
)

// ClassificationSignal is the normalized output of either evaluator.
// Severity and Action are populated for rule signals; for ML signals the
// orchestrator fills them from its default mapping.
type ClassificationSignal struct {
	Source     SignalSource `json:"source"`
	RuleID     string       `json:"rule_id,omitempty"`
	AttackType string       `json:"attack_type"`
	Confidence float64      `json:"confidence"`
	Severity   Severity     `json:"severity,omitempty"`
	Action     Action       `json:"action,omitempty"`
	Evidence   []string     `json:"evidence,omitempty"`
}

// RefinementStep is one entry in the verdict's reasoning trail, recording the
// best-so-far prediction after considering one candidate signal.
type RefinementStep struct {
	Step       int     `json:"step"`
	AttackType string  `json:"attack_type"`
	Confidence float64 `json:"confidence"`
}

// Severity of a detected attack.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityNone     Severity = "NONE"
)

// Action is a response action recommended by a verdict.
type Action string

const (
	ActionBlock     Action = "block"
	ActionRateLimit Action = "rate_limit"
	ActionAlert     Action = "alert"
	ActionMonitor   Action = "monitor"
)

// Verdict is the engine's final, per-observation output. It is created once
// and never mutated after the refinement path is finalized.
type Verdict struct {
	ID                string           `json:"id"`
	Timestamp         time.Time        `json:"timestamp"`
	SrcIP             string           `json:"src_ip"`
	DstIP             string           `json:"dst_ip"`
	SrcPort           uint16           `json:"src_port"`
	DstPort           uint16           `json:"dst_port"`
	Protocol          uint8            `json:"protocol"`
	ThreatDetected    bool             `json:"threat_detected"`
	AttackType        string           `json:"attack_type"`
	Confidence        float64          `json:"confidence"`
	Severity          Severity         `json:"severity"`
	RecommendedAction Action           `json:"recommended_action,omitempty"`
	DetectionMethod   SignalSource     `json:"detection_method,omitempty"`
	Evidence          []string         `json:"evidence,omitempty"`
	RefinementPath    []RefinementStep `json:"refinement_path"`
}

// DispatchResult reports the outcome of emitting a verdict to the configured
// response sinks. Err is non-nil when one or more sinks failed; the verdict
// itself is unaffected.
type DispatchResult struct {
	VerdictID string `json:"verdict_id"`
	Action    Action `json:"action"`
	Delivered int    `json:"delivered"`
	Err       error  `json:"-"`
}
