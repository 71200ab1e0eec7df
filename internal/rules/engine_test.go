package rules

import (
	"net"
	"reflect"
	"testing"
	"time"

	"NetSentinel/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("Failed to build store from defaults: %v", err)
	}
	return NewEngine(store)
}

func synObservation() *model.FlowObservation {
	return &model.FlowObservation{
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		SrcIP:     net.ParseIP("192.168.1.50"),
		DstIP:     net.ParseIP("10.0.0.1"),
		SrcPort:   40000,
		DstPort:   8080,
		Protocol:  model.ProtoTCP,
		TCPFlags:  model.FlagSYN,
	}
}

func TestEvaluate_SYNScanFires(t *testing.T) {
	eng := newTestEngine(t)
	obs := synObservation()
	snap := model.FlowStateSnapshot{
		SrcIP:            "192.168.1.50",
		TotalConnections: 24,
		UniquePorts:      12,
		ConnectionRate:   12.0,
		WindowSeconds:    2,
	}

	signals := eng.Evaluate(obs, snap)

	var syn *model.ClassificationSignal
	for i := range signals {
		if signals[i].RuleID == "SYN_SCAN" {
			syn = &signals[i]
		}
	}
	if syn == nil {
		t.Fatalf("Expected SYN_SCAN to fire, got signals: %+v", signals)
	}
	if syn.Source != model.SignalSourceRule {
		t.Errorf("Expected rule source, got %q", syn.Source)
	}
	if syn.AttackType != "SYN_SCAN" {
		t.Errorf("Expected attack type SYN_SCAN, got %q", syn.AttackType)
	}
	if syn.Confidence != 0.8 {
		t.Errorf("Expected confidence 0.8, got %v", syn.Confidence)
	}
	if syn.Severity != model.SeverityHigh || syn.Action != model.ActionBlock {
		t.Errorf("Expected HIGH/block, got %s/%s", syn.Severity, syn.Action)
	}

	wantEvidence := []string{
		"tcp_flags=SYN",
		"rate=12.0/s > threshold=5.0/s",
		"unique_ports=12 > threshold=5",
	}
	if !reflect.DeepEqual(syn.Evidence, wantEvidence) {
		t.Errorf("Evidence mismatch:\n got %v\nwant %v", syn.Evidence, wantEvidence)
	}
}

func TestEvaluate_SYNScanFiresAtLowRate(t *testing.T) {
	eng := newTestEngine(t)
	obs := synObservation()

	// A slow scan: 6 connections per second across 8 ports still fires.
	snap := model.FlowStateSnapshot{
		SrcIP:            "192.168.1.50",
		TotalConnections: 12,
		UniquePorts:      8,
		ConnectionRate:   6.0,
		WindowSeconds:    2,
	}

	var syn *model.ClassificationSignal
	for _, sig := range eng.Evaluate(obs, snap) {
		if sig.RuleID == "SYN_SCAN" {
			s := sig
			syn = &s
		}
	}
	if syn == nil {
		t.Fatal("Expected SYN_SCAN to fire at 6.0/s over 8 ports")
	}
	wantEvidence := []string{
		"tcp_flags=SYN",
		"rate=6.0/s > threshold=5.0/s",
		"unique_ports=8 > threshold=5",
	}
	if !reflect.DeepEqual(syn.Evidence, wantEvidence) {
		t.Errorf("Evidence mismatch:\n got %v\nwant %v", syn.Evidence, wantEvidence)
	}
}

func TestEvaluate_ConjunctivePredicates(t *testing.T) {
	eng := newTestEngine(t)
	obs := synObservation()

	// High rate but too few distinct ports: SYN_SCAN must not fire.
	snap := model.FlowStateSnapshot{
		SrcIP:          "192.168.1.50",
		ConnectionRate: 50.0,
		UniquePorts:    2,
	}
	for _, sig := range eng.Evaluate(obs, snap) {
		if sig.RuleID == "SYN_SCAN" {
			t.Fatal("SYN_SCAN fired with only a partial predicate match")
		}
	}
}

func TestEvaluate_ThresholdsAreStrict(t *testing.T) {
	eng := newTestEngine(t)
	obs := synObservation()

	// Exactly at the thresholds: strict comparison, nothing fires.
	snap := model.FlowStateSnapshot{
		SrcIP:          "192.168.1.50",
		ConnectionRate: 5.0,
		UniquePorts:    5,
	}
	for _, sig := range eng.Evaluate(obs, snap) {
		if sig.RuleID == "SYN_SCAN" {
			t.Fatal("SYN_SCAN fired at exactly the thresholds")
		}
	}
}

func TestEvaluate_FlagPatternMatching(t *testing.T) {
	eng := newTestEngine(t)
	snap := model.FlowStateSnapshot{ConnectionRate: 15.0, UniquePorts: 8}

	cases := []struct {
		name   string
		flags  uint8
		ruleID string
	}{
		{"null scan", 0, "NULL_SCAN"},
		{"xmas scan", model.FlagFIN | model.FlagPSH | model.FlagURG, "XMAS_SCAN"},
		{"fin scan", model.FlagFIN, "FIN_SCAN"},
	}
	for _, c := range cases {
		obs := synObservation()
		obs.TCPFlags = c.flags
		fired := map[string]bool{}
		for _, sig := range eng.Evaluate(obs, snap) {
			fired[sig.RuleID] = true
		}
		if !fired[c.ruleID] {
			t.Errorf("%s: expected %s to fire, fired: %v", c.name, c.ruleID, fired)
		}
	}

	// SYN-ACK must not match the exact single-flag SYN pattern.
	obs := synObservation()
	obs.TCPFlags = model.FlagSYN | model.FlagACK
	for _, sig := range eng.Evaluate(obs, snap) {
		if sig.RuleID == "SYN_SCAN" {
			t.Error("SYN_SCAN fired on SYN-ACK")
		}
	}
}

func TestEvaluate_BruteForceNeedsFailedAttempts(t *testing.T) {
	eng := newTestEngine(t)
	obs := synObservation()
	obs.DstPort = 22
	obs.TCPFlags = model.FlagRST

	snap := model.FlowStateSnapshot{
		SrcIP:          "192.168.1.50",
		ConnectionRate: 8.0,
		FailedAttempts: 15,
	}
	fired := map[string]bool{}
	for _, sig := range eng.Evaluate(obs, snap) {
		fired[sig.RuleID] = true
	}
	if !fired["SSH_BRUTE_FORCE"] {
		t.Errorf("Expected SSH_BRUTE_FORCE, fired: %v", fired)
	}

	snap.FailedAttempts = 3
	for _, sig := range eng.Evaluate(obs, snap) {
		if sig.RuleID == "SSH_BRUTE_FORCE" {
			t.Error("SSH_BRUTE_FORCE fired without enough failed attempts")
		}
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	eng := newTestEngine(t)
	obs := synObservation()
	snap := model.FlowStateSnapshot{
		SrcIP:          "192.168.1.50",
		ConnectionRate: 150.0,
		UniquePorts:    30,
	}

	first := eng.Evaluate(obs, snap)
	if len(first) == 0 {
		t.Fatal("Expected at least one signal")
	}
	for i := 0; i < 10; i++ {
		again := eng.Evaluate(obs, snap)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Evaluation %d differed:\n got %+v\nwant %+v", i, again, first)
		}
	}

	// Signals come back ordered by rule ID.
	for i := 1; i < len(first); i++ {
		if first[i-1].RuleID >= first[i].RuleID {
			t.Fatalf("Signals not in rule-ID order: %q before %q", first[i-1].RuleID, first[i].RuleID)
		}
	}
}
