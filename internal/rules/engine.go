package rules

import (
	"fmt"

	"NetSentinel/internal/model"
)

// Engine evaluates the active rule catalog against flow observations. It is
// stateless apart from the catalog store, so concurrent evaluation across
// flows is safe.
type Engine struct {
	store *Store
}

// NewEngine creates a rule engine over the given catalog store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// Store exposes the underlying catalog store for reload and introspection.
func (e *Engine) Store() *Store {
	return e.store
}

// Evaluate checks every enabled rule against the observation and snapshot and
// returns one ClassificationSignal per fired rule. Rules are conjunctive: a
// rule fires only when all of its predicate clauses hold. Signals come back
// in rule-ID order, so repeated evaluation of the same inputs yields the
// identical set.
func (e *Engine) Evaluate(obs *model.FlowObservation, snap model.FlowStateSnapshot) []model.ClassificationSignal {
	var signals []model.ClassificationSignal
	for _, rule := range e.store.Current().Rules() {
		if !rule.Enabled {
			continue
		}
		if evidence, ok := matchRule(&rule, obs, snap); ok {
			signals = append(signals, model.ClassificationSignal{
				Source:     model.SignalSourceRule,
				RuleID:     rule.ID,
				AttackType: rule.ID,
				Confidence: rule.Confidence,
				Severity:   rule.Severity,
				Action:     rule.ResponseAction,
				Evidence:   evidence,
			})
		}
	}
	return signals
}

// matchRule evaluates one rule's conjunctive predicate. It returns the
// evidence strings for the matched clauses with their observed values, or
// ok=false as soon as any clause fails.
func matchRule(rule *AttackRule, obs *model.FlowObservation, snap model.FlowStateSnapshot) ([]string, bool) {
	p := rule.Predicate
	var evidence []string

	if p.TCPFlags != "" {
		if obs.Protocol != model.ProtoTCP {
			return nil, false
		}
		mask, exact, err := parseFlagPattern(p.TCPFlags)
		if err != nil {
			// Unparseable patterns are caught at load; treat as no match.
			return nil, false
		}
		if exact {
			if obs.TCPFlags != mask {
				return nil, false
			}
		} else if obs.TCPFlags&mask != mask {
			return nil, false
		}
		evidence = append(evidence, fmt.Sprintf("tcp_flags=%s", p.TCPFlags))
	}

	if p.Protocol != "" {
		num, err := protocolNumber(p.Protocol)
		if err != nil || obs.Protocol != num {
			return nil, false
		}
		evidence = append(evidence, fmt.Sprintf("protocol=%s", protocolName(num)))
	}

	if len(p.DstPorts) > 0 {
		found := false
		for _, port := range p.DstPorts {
			if obs.DstPort == port {
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
		evidence = append(evidence, fmt.Sprintf("dst_port=%d", obs.DstPort))
	}

	if p.MinRate > 0 {
		if snap.ConnectionRate <= p.MinRate {
			return nil, false
		}
		evidence = append(evidence, fmt.Sprintf("rate=%.1f/s > threshold=%.1f/s", snap.ConnectionRate, p.MinRate))
	}

	if p.MinUniquePorts > 0 {
		if snap.UniquePorts <= p.MinUniquePorts {
			return nil, false
		}
		evidence = append(evidence, fmt.Sprintf("unique_ports=%d > threshold=%d", snap.UniquePorts, p.MinUniquePorts))
	}

	if p.MinFailedAttempts > 0 {
		if snap.FailedAttempts <= p.MinFailedAttempts {
			return nil, false
		}
		evidence = append(evidence, fmt.Sprintf("failed_attempts=%d > threshold=%d", snap.FailedAttempts, p.MinFailedAttempts))
	}

	return evidence, true
}
