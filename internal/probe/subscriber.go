package probe

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/nats-io/nats.go"

	"NetSentinel/internal/model"
)

// ObservationHandler is a function that processes a received observation.
type ObservationHandler func(obs *model.FlowObservation)

// Subscriber consumes flow observations from a NATS subject. Close waits for
// any in-flight handler call to return, so callers may tear down whatever the
// handler writes to as soon as Close returns.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(url, subject string) (*Subscriber, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Subscriber{nc: nc, subject: subject}, nil
}

// Start subscribes to the configured subject and processes messages with the
// provided handler. Undecodable or invalid messages are logged and skipped.
func (s *Subscriber) Start(handler ObservationHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		s.deliver(msg, handler)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for observations...", s.subject)
	return nil
}

// deliver decodes one message and hands it to the handler. Deliveries that
// race with Close are dropped.
func (s *Subscriber) deliver(msg *nats.Msg, handler ObservationHandler) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	var obs model.FlowObservation
	if err := json.Unmarshal(msg.Data, &obs); err != nil {
		log.Printf("Error unmarshalling observation: %v", err)
		return
	}
	if err := obs.Validate(); err != nil {
		log.Printf("Skipping invalid observation: %v", err)
		return
	}
	handler(&obs)
}

// Close unsubscribes, waits for in-flight handler calls to return, and
// closes the NATS connection. It is safe to call more than once.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.wg.Wait()
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
