package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"

	"NetSentinel/internal/model"
)

var severityRank = map[model.Severity]int{
	model.SeverityLow:      1,
	model.SeverityMedium:   2,
	model.SeverityHigh:     3,
	model.SeverityCritical: 4,
}

// AlertSink turns dispatched verdicts into operator notifications. Verdicts
// below the minimum severity are ignored. When an analyzer is configured, an
// AI-generated incident summary is appended to the notification body.
type AlertSink struct {
	notifier    model.Notifier
	analyzer    *IncidentAnalyzer
	minSeverity model.Severity
}

// NewAlertSink creates an alert sink. The analyzer may be nil.
func NewAlertSink(notifier model.Notifier, analyzer *IncidentAnalyzer, minSeverity model.Severity) *AlertSink {
	if _, ok := severityRank[minSeverity]; !ok {
		minSeverity = model.SeverityHigh
	}
	return &AlertSink{
		notifier:    notifier,
		analyzer:    analyzer,
		minSeverity: minSeverity,
	}
}

func (s *AlertSink) Name() string {
	return "alert"
}

func (s *AlertSink) Emit(_ context.Context, v *model.Verdict) error {
	if severityRank[v.Severity] < severityRank[s.minSeverity] {
		return nil
	}

	subject := fmt.Sprintf("NetSentinel Alert: %s from %s (%s)", v.AttackType, v.SrcIP, v.Severity)
	body := s.renderBody(v)
	return s.notifier.Send(subject, body)
}

func (s *AlertSink) renderBody(v *model.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>NetSentinel Threat Alert</h1>")
	fmt.Fprintf(&b, "<p><b>Attack:</b> %s<br>", v.AttackType)
	fmt.Fprintf(&b, "<b>Source:</b> %s &rarr; %s:%d<br>", v.SrcIP, v.DstIP, v.DstPort)
	fmt.Fprintf(&b, "<b>Confidence:</b> %.0f%%<br>", v.Confidence*100)
	fmt.Fprintf(&b, "<b>Severity:</b> %s<br>", v.Severity)
	fmt.Fprintf(&b, "<b>Recommended action:</b> %s<br>", v.RecommendedAction)
	fmt.Fprintf(&b, "<b>Time:</b> %s</p>", v.Timestamp.Format(time.RFC3339))

	if len(v.Evidence) > 0 {
		b.WriteString("<h2>Evidence</h2><ul>")
		for _, e := range v.Evidence {
			fmt.Fprintf(&b, "<li>%s</li>", e)
		}
		b.WriteString("</ul>")
	}

	if len(v.RefinementPath) > 0 {
		b.WriteString("<h2>Refinement Path</h2><ol>")
		for _, step := range v.RefinementPath {
			fmt.Fprintf(&b, "<li>%s (%.0f%%)</li>", step.AttackType, step.Confidence*100)
		}
		b.WriteString("</ol>")
	}

	if analysis := s.getAnalysis(v); analysis != "" {
		html := markdown.ToHTML([]byte(analysis), nil, nil)
		b.WriteString("<hr><h2>AI-Powered Analysis</h2>")
		b.Write(html)
	}

	return b.String()
}

func (s *AlertSink) getAnalysis(v *model.Verdict) string {
	if s.analyzer == nil {
		return ""
	}

	incident, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	// The per-flow deadline does not bound the analysis side-channel.
	actx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	analysis, err := s.analyzer.Analyze(actx, string(incident))
	if err != nil {
		log.Printf("Failed to get AI analysis: %v", err)
		return ""
	}
	return analysis
}
