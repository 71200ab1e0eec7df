package mlclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"NetSentinel/internal/model"
)

func TestClassify_Success(t *testing.T) {
	var gotFeatures []float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Features []float64 `json:"features"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		gotFeatures = req.Features
		json.NewEncoder(w).Encode(map[string]interface{}{
			"label":       "DoS",
			"probability": 0.92,
		})
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second)
	features := []float64{1, 0, 0.5, 0.1, 64, 2, 12, 8, 0, 24}
	sig, err := client.Classify(context.Background(), features)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if !reflect.DeepEqual(gotFeatures, features) {
		t.Errorf("Endpoint received %v, want %v", gotFeatures, features)
	}
	if sig.Source != model.SignalSourceML {
		t.Errorf("Expected ml source, got %q", sig.Source)
	}
	if sig.AttackType != "DoS" || sig.Confidence != 0.92 {
		t.Errorf("Got %q @ %v", sig.AttackType, sig.Confidence)
	}
}

func TestClassify_BenignLabelsNormalize(t *testing.T) {
	cases := []string{"", "BENIGN", "benign", "Normal", "none", "0", " BENIGN "}
	for _, label := range cases {
		label := label
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"label":       label,
				"probability": 0.99,
			})
		}))
		client := New(server.URL, 2*time.Second)
		sig, err := client.Classify(context.Background(), []float64{0})
		server.Close()
		if err != nil {
			t.Fatalf("Classify failed for label %q: %v", label, err)
		}
		if sig.AttackType != model.AttackTypeNormal {
			t.Errorf("Label %q: expected Normal, got %q", label, sig.AttackType)
		}
	}
}

func TestClassify_FailuresAreModelUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}},
		{"error field", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"error": "model not loaded"})
		}},
		{"probability out of range", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"label": "DoS", "probability": 1.7})
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			server := httptest.NewServer(c.handler)
			defer server.Close()

			client := New(server.URL, 2*time.Second)
			_, err := client.Classify(context.Background(), []float64{0})
			if !errors.Is(err, model.ErrModelUnavailable) {
				t.Errorf("Expected ErrModelUnavailable, got %v", err)
			}
		})
	}
}

func TestClassify_UnreachableEndpoint(t *testing.T) {
	// Reserve a port and close it so nothing is listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	client := New("http://"+addr+"/predict", 500*time.Millisecond)
	_, err = client.Classify(context.Background(), []float64{0})
	if !errors.Is(err, model.ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable, got %v", err)
	}
}

func TestClassify_HonorsContext(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client := New(server.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Classify(ctx, []float64{0})
	if !errors.Is(err, model.ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Classify did not honor context cancellation")
	}
}

func TestFeatures_DeterministicShape(t *testing.T) {
	obs := &model.FlowObservation{
		Timestamp:  time.Now(),
		SrcIP:      net.ParseIP("192.168.1.50"),
		SrcPort:    32768,
		DstPort:    443,
		Protocol:   model.ProtoUDP,
		PacketSize: 128,
		Duration:   2 * time.Second,
	}
	snap := model.FlowStateSnapshot{
		ConnectionRate:   6,
		UniquePorts:      3,
		FailedAttempts:   1,
		TotalConnections: 12,
	}

	f := Features(obs, snap)
	if len(f) != FeatureCount {
		t.Fatalf("Expected %d features, got %d", FeatureCount, len(f))
	}
	if f[0] != 2.0 {
		t.Errorf("Expected duration 2.0s, got %v", f[0])
	}
	if f[1] != 1 {
		t.Errorf("Expected UDP encoded as 1, got %v", f[1])
	}
	if f[2] != 0.5 {
		t.Errorf("Expected src port 32768 scaled to 0.5, got %v", f[2])
	}
	if !reflect.DeepEqual(f, Features(obs, snap)) {
		t.Error("Feature projection is not deterministic")
	}
}
