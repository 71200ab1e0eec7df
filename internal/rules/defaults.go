package rules

import "NetSentinel/internal/model"

// DefaultRules returns the built-in signature catalog. Thresholds and
// confidences follow the documented attack category definitions; a rules
// file can override individual entries by ID or add new ones.
func DefaultRules() []AttackRule {
	return []AttackRule{
		{
			ID:       "SYN_SCAN",
			Name:     "TCP SYN Scan",
			Category: "Port Scan",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				TCPFlags:       "SYN",
				MinRate:        5,
				MinUniquePorts: 5,
			},
			Confidence:     0.8,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "NULL_SCAN",
			Name:     "TCP NULL Scan",
			Category: "Port Scan",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				TCPFlags: "NULL",
				Protocol: "tcp",
				MinRate:  5,
			},
			Confidence:     0.9,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "XMAS_SCAN",
			Name:     "TCP XMAS Scan",
			Category: "Port Scan",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				TCPFlags: "FIN-PSH-URG",
				MinRate:  5,
			},
			Confidence:     0.85,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "FIN_SCAN",
			Name:     "TCP FIN Scan",
			Category: "Port Scan",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				TCPFlags: "FIN",
				MinRate:  5,
			},
			Confidence:     0.8,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "UDP_SCAN",
			Name:     "UDP Port Scan",
			Category: "Port Scan",
			Severity: model.SeverityMedium,
			Enabled:  true,
			Predicate: Predicate{
				Protocol:       "udp",
				MinRate:        10,
				MinUniquePorts: 10,
			},
			Confidence:     0.7,
			ResponseAction: model.ActionMonitor,
		},
		{
			ID:       "VERTICAL_SCAN",
			Name:     "Vertical Port Scan",
			Category: "Port Scan",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				MinUniquePorts: 20,
			},
			Confidence:     0.75,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "SYN_FLOOD",
			Name:     "SYN Flood Attack",
			Category: "Denial of Service",
			Severity: model.SeverityCritical,
			Enabled:  true,
			Predicate: Predicate{
				TCPFlags: "SYN",
				MinRate:  100,
			},
			Confidence:     0.9,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "UDP_FLOOD",
			Name:     "UDP Flood Attack",
			Category: "Denial of Service",
			Severity: model.SeverityCritical,
			Enabled:  true,
			Predicate: Predicate{
				Protocol: "udp",
				MinRate:  1000,
			},
			Confidence:     0.85,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "ICMP_FLOOD",
			Name:     "ICMP Flood Attack",
			Category: "Denial of Service",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				Protocol: "icmp",
				MinRate:  100,
			},
			Confidence:     0.8,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "HTTP_FLOOD",
			Name:     "HTTP Flood Attack",
			Category: "Denial of Service",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				Protocol: "tcp",
				DstPorts: []uint16{80, 443, 8080},
				MinRate:  50,
			},
			Confidence:     0.8,
			ResponseAction: model.ActionRateLimit,
		},
		{
			ID:       "SSH_BRUTE_FORCE",
			Name:     "SSH Brute Force",
			Category: "Brute Force",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				Protocol:          "tcp",
				DstPorts:          []uint16{22},
				MinRate:           5,
				MinFailedAttempts: 10,
			},
			Confidence:     0.85,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "FTP_BRUTE_FORCE",
			Name:     "FTP Brute Force",
			Category: "Brute Force",
			Severity: model.SeverityHigh,
			Enabled:  true,
			Predicate: Predicate{
				Protocol:          "tcp",
				DstPorts:          []uint16{21},
				MinRate:           10,
				MinFailedAttempts: 15,
			},
			Confidence:     0.8,
			ResponseAction: model.ActionBlock,
		},
		{
			ID:       "RDP_BRUTE_FORCE",
			Name:     "RDP Brute Force",
			Category: "Brute Force",
			Severity: model.SeverityCritical,
			Enabled:  true,
			Predicate: Predicate{
				Protocol:          "tcp",
				DstPorts:          []uint16{3389},
				MinRate:           3,
				MinFailedAttempts: 5,
			},
			Confidence:     0.9,
			ResponseAction: model.ActionBlock,
		},
	}
}
