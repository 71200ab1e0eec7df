package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}
	return path
}

func TestStore_DefaultsOnly(t *testing.T) {
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	catalog := store.Current()
	if catalog.Len() != len(DefaultRules()) {
		t.Errorf("Expected %d default rules, got %d", len(DefaultRules()), catalog.Len())
	}
	rules := catalog.Rules()
	for i := 1; i < len(rules); i++ {
		if rules[i-1].ID >= rules[i].ID {
			t.Fatalf("Catalog not sorted by ID: %q before %q", rules[i-1].ID, rules[i].ID)
		}
	}
}

func TestStore_FileOverridesAndAdds(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: "SYN_SCAN"
    name: "TCP SYN Scan"
    category: "Port Scan"
    severity: "HIGH"
    enabled: true
    predicate:
      tcp_flags: "SYN"
      min_rate: 25
      min_unique_ports: 5
    confidence: 0.8
    response_action: "block"
  - id: "DNS_FLOOD"
    name: "DNS Query Flood"
    category: "Denial of Service"
    severity: "MEDIUM"
    enabled: true
    predicate:
      protocol: "udp"
      dst_ports: [53]
      min_rate: 200
    confidence: 0.7
    response_action: "rate_limit"
`)

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	catalog := store.Current()
	if catalog.Len() != len(DefaultRules())+1 {
		t.Errorf("Expected %d rules after adding one, got %d", len(DefaultRules())+1, catalog.Len())
	}

	byID := map[string]AttackRule{}
	for _, r := range catalog.Rules() {
		byID[r.ID] = r
	}
	if got := byID["SYN_SCAN"].Predicate.MinRate; got != 25 {
		t.Errorf("Expected overridden SYN_SCAN min_rate 25, got %v", got)
	}
	if _, ok := byID["DNS_FLOOD"]; !ok {
		t.Error("Expected custom DNS_FLOOD rule in catalog")
	}
	// Untouched defaults survive the merge.
	if got := byID["SYN_FLOOD"].Predicate.MinRate; got != 100 {
		t.Errorf("Expected default SYN_FLOOD min_rate 100, got %v", got)
	}
}

func TestStore_SkipsInvalidRules(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: "BAD_CONFIDENCE"
    name: "Bad"
    severity: "HIGH"
    enabled: true
    predicate:
      min_rate: 5
    confidence: 1.5
    response_action: "block"
  - id: "NO_PREDICATE"
    name: "Empty"
    severity: "LOW"
    enabled: true
    predicate: {}
    confidence: 0.5
    response_action: "monitor"
`)

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("Invalid rules should be skipped, not fatal: %v", err)
	}
	for _, r := range store.Current().Rules() {
		if r.ID == "BAD_CONFIDENCE" || r.ID == "NO_PREDICATE" {
			t.Errorf("Invalid rule %q made it into the catalog", r.ID)
		}
	}
}

func TestStore_MalformedFileKeepsPreviousCatalog(t *testing.T) {
	path := writeRulesFile(t, "rules: []\n")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	before := store.Current()

	if err := os.WriteFile(path, []byte("{{ not yaml"), 0644); err != nil {
		t.Fatalf("Failed to overwrite rules file: %v", err)
	}
	if err := store.Reload(); err == nil {
		t.Fatal("Expected reload of malformed file to fail")
	}
	if store.Current() != before {
		t.Error("Failed reload must leave the previous catalog in place")
	}
}

func TestStore_ReloadSwapsCatalog(t *testing.T) {
	path := writeRulesFile(t, "rules: []\n")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	if store.Current().Len() != len(DefaultRules()) {
		t.Fatalf("Expected defaults before reload, got %d rules", store.Current().Len())
	}

	if err := os.WriteFile(path, []byte(`
rules:
  - id: "TELNET_BRUTE_FORCE"
    name: "Telnet Brute Force"
    category: "Brute Force"
    severity: "HIGH"
    enabled: true
    predicate:
      protocol: "tcp"
      dst_ports: [23]
      min_rate: 5
      min_failed_attempts: 10
    confidence: 0.8
    response_action: "block"
`), 0644); err != nil {
		t.Fatalf("Failed to update rules file: %v", err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if store.Current().Len() != len(DefaultRules())+1 {
		t.Errorf("Expected %d rules after reload, got %d", len(DefaultRules())+1, store.Current().Len())
	}
}
