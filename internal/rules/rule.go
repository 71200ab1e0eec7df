package rules

import (
	"fmt"
	"strings"

	"NetSentinel/internal/model"
)

// Predicate is the conjunctive threshold condition of an AttackRule. A rule
// fires only when every clause that is set holds against the observation and
// the tracked flow state.
type Predicate struct {
	// TCPFlags names the required flag pattern: a single flag ("SYN") must
	// match exactly, "NULL" means no flags set, and a dash-joined list
	// ("FIN-PSH-URG") requires all listed flags present.
	TCPFlags string `yaml:"tcp_flags" json:"tcp_flags,omitempty"`

	// Protocol restricts the rule to "tcp", "udp" or "icmp".
	Protocol string `yaml:"protocol" json:"protocol,omitempty"`

	// DstPorts restricts the rule to observations targeting one of the
	// listed destination ports.
	DstPorts []uint16 `yaml:"dst_ports" json:"dst_ports,omitempty"`

	// MinRate fires when the tracked connection rate exceeds this many
	// connections per second.
	MinRate float64 `yaml:"min_rate" json:"min_rate,omitempty"`

	// MinUniquePorts fires when more than this many distinct destination
	// ports were contacted within the window.
	MinUniquePorts int `yaml:"min_unique_ports" json:"min_unique_ports,omitempty"`

	// MinFailedAttempts fires when more than this many failed
	// authentication attempts were tracked within the window.
	MinFailedAttempts int `yaml:"min_failed_attempts" json:"min_failed_attempts,omitempty"`
}

// AttackRule is an immutable signature definition. Instances are only ever
// replaced wholesale via a catalog reload, never mutated.
type AttackRule struct {
	ID             string         `yaml:"id" json:"id"`
	Name           string         `yaml:"name" json:"name"`
	Category       string         `yaml:"category" json:"category"`
	Severity       model.Severity `yaml:"severity" json:"severity"`
	Enabled        bool           `yaml:"enabled" json:"enabled"`
	Predicate      Predicate      `yaml:"predicate" json:"predicate"`
	Confidence     float64        `yaml:"confidence" json:"confidence"`
	ResponseAction model.Action   `yaml:"response_action" json:"response_action"`
}

var flagBits = map[string]uint8{
	"FIN": model.FlagFIN,
	"SYN": model.FlagSYN,
	"RST": model.FlagRST,
	"PSH": model.FlagPSH,
	"ACK": model.FlagACK,
	"URG": model.FlagURG,
}

// parseFlagPattern turns a pattern string into the required flag mask and
// whether the match must be exact. "NULL" matches exactly zero flags, a
// single flag matches exactly that flag, and a dash-joined list requires all
// listed flags to be present.
func parseFlagPattern(pattern string) (mask uint8, exact bool, err error) {
	if pattern == "NULL" {
		return 0, true, nil
	}
	parts := strings.Split(pattern, "-")
	for _, p := range parts {
		bit, ok := flagBits[p]
		if !ok {
			return 0, false, fmt.Errorf("unknown TCP flag %q", p)
		}
		mask |= bit
	}
	return mask, len(parts) == 1, nil
}

// protocolNumber maps a predicate protocol name to its IANA number.
func protocolNumber(name string) (uint8, error) {
	switch strings.ToLower(name) {
	case "tcp":
		return model.ProtoTCP, nil
	case "udp":
		return model.ProtoUDP, nil
	case "icmp":
		return model.ProtoICMP, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q", name)
	}
}

func protocolName(num uint8) string {
	switch num {
	case model.ProtoTCP:
		return "TCP"
	case model.ProtoUDP:
		return "UDP"
	case model.ProtoICMP:
		return "ICMP"
	default:
		return fmt.Sprintf("proto_%d", num)
	}
}

// validate rejects rules the engine could not evaluate deterministically.
// Invalid rules are skipped at catalog load, never fatal to the catalog.
func (r *AttackRule) validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule has no id")
	}
	if r.Confidence <= 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v out of (0,1]", r.Confidence)
	}
	switch r.Severity {
	case model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow:
	default:
		return fmt.Errorf("unknown severity %q", r.Severity)
	}
	switch r.ResponseAction {
	case model.ActionBlock, model.ActionRateLimit, model.ActionAlert, model.ActionMonitor:
	default:
		return fmt.Errorf("unknown response action %q", r.ResponseAction)
	}
	p := r.Predicate
	if p.TCPFlags == "" && p.Protocol == "" && len(p.DstPorts) == 0 &&
		p.MinRate == 0 && p.MinUniquePorts == 0 && p.MinFailedAttempts == 0 {
		return fmt.Errorf("predicate has no clauses")
	}
	if p.TCPFlags != "" {
		if _, _, err := parseFlagPattern(p.TCPFlags); err != nil {
			return fmt.Errorf("bad tcp_flags: %w", err)
		}
	}
	if p.Protocol != "" {
		if _, err := protocolNumber(p.Protocol); err != nil {
			return fmt.Errorf("bad protocol: %w", err)
		}
	}
	return nil
}
