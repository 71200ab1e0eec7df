package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"NetSentinel/internal/model"
)

// NATSSink publishes dispatched verdicts to a NATS subject for the real-time
// notification and mitigation collaborators. Verdicts are JSON-encoded; the
// recommended action is appended to the subject so mitigation controllers
// can subscribe to just the actions they implement.
type NATSSink struct {
	nc      *nats.Conn
	subject string
}

// NewNATSSink connects to NATS and returns a verdict sink publishing under
// the given base subject.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Verdict sink connected to NATS server at %s", url)
	return &NATSSink{nc: nc, subject: subject}, nil
}

func (s *NATSSink) Name() string {
	return "nats"
}

func (s *NATSSink) Emit(_ context.Context, v *model.Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	subject := s.subject
	if v.RecommendedAction != "" {
		subject = s.subject + "." + string(v.RecommendedAction)
	}
	return s.nc.Publish(subject, data)
}

// Close drains and closes the NATS connection.
func (s *NATSSink) Close() {
	if s.nc != nil {
		s.nc.Drain()
	}
}
