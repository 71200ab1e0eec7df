package engine

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"NetSentinel/internal/model"
)

// Orchestrator reconciles rule-engine and ML-adapter signals into a final
// verdict with an auditable refinement path. Deterministic signatures take
// precedence over the ML signal above the priority floor: they are cheaper to
// audit and do not drift with a stale model.
type Orchestrator struct {
	priorityFloor float64
	minConfidence float64
}

// NewOrchestrator creates an orchestrator with the given global priority
// floor and minimum final confidence.
func NewOrchestrator(priorityFloor, minConfidence float64) *Orchestrator {
	return &Orchestrator{
		priorityFloor: priorityFloor,
		minConfidence: minConfidence,
	}
}

// Decide arbitrates between the rule signals and the optional ML signal and
// produces the verdict for one observation.
//
// Candidates are walked in a fixed, reproducible order: rule signals by
// descending confidence, ties broken by rule ID ascending, then the ML signal
// last. Each step appends the best-so-far prediction to the refinement path,
// even when it does not change, so the trail narrates how the decision
// converged. If any rule signal reaches the priority floor, the ML signal
// can never displace the best rule, regardless of its confidence.
func (o *Orchestrator) Decide(obs *model.FlowObservation, ruleSignals []model.ClassificationSignal, mlSignal *model.ClassificationSignal) *model.Verdict {
	ordered := make([]model.ClassificationSignal, len(ruleSignals))
	copy(ordered, ruleSignals)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Confidence != ordered[j].Confidence {
			return ordered[i].Confidence > ordered[j].Confidence
		}
		return ordered[i].RuleID < ordered[j].RuleID
	})

	rulesLocked := false
	for _, sig := range ordered {
		if sig.Confidence >= o.priorityFloor {
			rulesLocked = true
			break
		}
	}

	candidates := ordered
	if mlSignal != nil {
		candidates = append(candidates, *mlSignal)
	}

	var best *model.ClassificationSignal
	path := make([]model.RefinementStep, 0, len(candidates))
	for i := range candidates {
		cand := &candidates[i]
		if o.improves(cand, best, rulesLocked) {
			best = cand
		}
		path = append(path, model.RefinementStep{
			Step:       len(path),
			AttackType: best.AttackType,
			Confidence: best.Confidence,
		})
	}

	v := &model.Verdict{
		ID:             uuid.NewString(),
		Timestamp:      obs.Timestamp,
		SrcIP:          obs.SrcIP.String(),
		DstIP:          ipString(obs),
		SrcPort:        obs.SrcPort,
		DstPort:        obs.DstPort,
		Protocol:       obs.Protocol,
		AttackType:     model.AttackTypeNormal,
		Severity:       model.SeverityNone,
		RefinementPath: path,
	}

	if best == nil {
		return v
	}

	v.Confidence = best.Confidence
	if best.AttackType == model.AttackTypeNormal || best.Confidence < o.minConfidence {
		return v
	}

	v.ThreatDetected = true
	v.AttackType = best.AttackType
	v.DetectionMethod = best.Source
	v.Evidence = best.Evidence
	if best.Source == model.SignalSourceRule {
		v.Severity = best.Severity
		v.RecommendedAction = best.Action
	} else {
		v.Severity = defaultSeverity(best.AttackType)
		v.RecommendedAction = defaultAction(v.Severity)
	}
	return v
}

// improves reports whether the candidate displaces the current best-so-far.
// The first candidate always becomes the best; afterwards a candidate must
// strictly exceed the best confidence, and an ML candidate is barred entirely
// while a rule at or above the priority floor holds the decision.
func (o *Orchestrator) improves(cand, best *model.ClassificationSignal, rulesLocked bool) bool {
	if best == nil {
		return true
	}
	if cand.Source == model.SignalSourceML && rulesLocked {
		return false
	}
	return cand.Confidence > best.Confidence
}

func ipString(obs *model.FlowObservation) string {
	if len(obs.DstIP) == 0 {
		return ""
	}
	return obs.DstIP.String()
}

// defaultSeverity maps an ML-predicted attack type onto a severity when no
// rule configuration applies, following the model's training labels.
func defaultSeverity(attackType string) model.Severity {
	switch strings.ToUpper(attackType) {
	case "DOS", "DDOS", "BOT", "WEBATTACK", "WEB_ATTACK", "BRUTEFORCE", "BRUTE_FORCE", "EXPLOITS":
		return model.SeverityHigh
	case "INFILTRATION", "HEARTBLEED", "BACKDOOR", "SHELLCODE", "WORMS":
		return model.SeverityCritical
	case "PORTSCAN", "PORT_SCAN", "RECONNAISSANCE", "ANALYSIS", "FUZZERS", "GENERIC",
		"FTP-PATATOR", "SSH-PATATOR":
		return model.SeverityMedium
	default:
		return model.SeverityMedium
	}
}

// defaultAction maps a severity onto a response action for ML-sourced
// verdicts, which carry no per-rule action configuration.
func defaultAction(severity model.Severity) model.Action {
	switch severity {
	case model.SeverityCritical, model.SeverityHigh:
		return model.ActionBlock
	case model.SeverityMedium:
		return model.ActionAlert
	default:
		return model.ActionMonitor
	}
}
