package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"NetSentinel/internal/config"
	"NetSentinel/internal/history"
	"NetSentinel/internal/model"
)

// VerdictRecord is one stored verdict row as served by the query API.
type VerdictRecord struct {
	ID                string                 `json:"id"`
	Timestamp         time.Time              `json:"timestamp"`
	SrcIP             string                 `json:"src_ip"`
	DstIP             string                 `json:"dst_ip"`
	SrcPort           uint16                 `json:"src_port"`
	DstPort           uint16                 `json:"dst_port"`
	Protocol          uint8                  `json:"protocol"`
	ThreatDetected    bool                   `json:"threat_detected"`
	AttackType        string                 `json:"attack_type"`
	Confidence        float64                `json:"confidence"`
	Severity          string                 `json:"severity"`
	RecommendedAction string                 `json:"recommended_action"`
	DetectionMethod   string                 `json:"detection_method"`
	Evidence          []string               `json:"evidence,omitempty"`
	RefinementPath    []model.RefinementStep `json:"refinement_path"`
}

// SourceSummary aggregates detections per source IP and attack type.
type SourceSummary struct {
	SrcIP         string    `json:"src_ip"`
	AttackType    string    `json:"attack_type"`
	Detections    uint64    `json:"detections"`
	MaxConfidence float64   `json:"max_confidence"`
	LastSeen      time.Time `json:"last_seen"`
}

// Querier defines the interface for querying stored verdicts.
type Querier interface {
	RecentVerdicts(ctx context.Context, srcIP string, threatsOnly bool, limit int) ([]VerdictRecord, error)
	Summarize(ctx context.Context, since time.Time) ([]SourceSummary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := history.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// RecentVerdicts returns the most recent verdicts, optionally filtered by
// source IP and restricted to detected threats.
func (q *clickhouseQuerier) RecentVerdicts(ctx context.Context, srcIP string, threatsOnly bool, limit int) ([]VerdictRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var conditions []string
	var args []interface{}
	if srcIP != "" {
		conditions = append(conditions, "SrcIP = ?")
		args = append(args, srcIP)
	}
	if threatsOnly {
		conditions = append(conditions, "ThreatDetected = 1")
	}

	sql := `SELECT ID, Timestamp, SrcIP, DstIP, SrcPort, DstPort, Protocol,
		ThreatDetected, AttackType, Confidence, Severity, RecommendedAction,
		DetectionMethod, Evidence, RefinementPath FROM verdicts`
	if len(conditions) > 0 {
		sql += " WHERE " + strings.Join(conditions, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY Timestamp DESC LIMIT %d", limit)

	rows, err := q.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var records []VerdictRecord
	for rows.Next() {
		var (
			rec      VerdictRecord
			detected uint8
			evidence string
			path     string
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.SrcIP, &rec.DstIP,
			&rec.SrcPort, &rec.DstPort, &rec.Protocol, &detected,
			&rec.AttackType, &rec.Confidence, &rec.Severity,
			&rec.RecommendedAction, &rec.DetectionMethod, &evidence, &path); err != nil {
			return nil, fmt.Errorf("failed to scan verdict row: %w", err)
		}
		rec.ThreatDetected = detected == 1
		if evidence != "" {
			rec.Evidence = strings.Split(evidence, "; ")
		}
		if path != "" {
			if err := json.Unmarshal([]byte(path), &rec.RefinementPath); err != nil {
				return nil, fmt.Errorf("failed to decode refinement path: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summarize aggregates detected threats per (source IP, attack type) since
// the given time.
func (q *clickhouseQuerier) Summarize(ctx context.Context, since time.Time) ([]SourceSummary, error) {
	sql := `SELECT SrcIP, AttackType, count() AS Detections,
		max(Confidence) AS MaxConfidence, max(Timestamp) AS LastSeen
		FROM verdicts
		WHERE ThreatDetected = 1 AND Timestamp >= ?
		GROUP BY SrcIP, AttackType
		ORDER BY Detections DESC`

	rows, err := q.conn.Query(ctx, sql, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var summaries []SourceSummary
	for rows.Next() {
		var s SourceSummary
		if err := rows.Scan(&s.SrcIP, &s.AttackType, &s.Detections, &s.MaxConfidence, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
