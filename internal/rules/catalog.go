package rules

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Catalog is an immutable snapshot of the rule set. Readers always see a
// complete, consistent catalog; reloads swap the whole snapshot atomically.
type Catalog struct {
	rules []AttackRule
}

// Rules returns the catalog entries sorted by rule ID.
func (c *Catalog) Rules() []AttackRule {
	return c.rules
}

// Len returns the number of rules in the catalog, enabled or not.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Store owns the current catalog snapshot and handles load and reload from
// the optional rules file layered over the built-in defaults.
type Store struct {
	path    string
	current atomic.Pointer[Catalog]
}

// ruleFile is the YAML shape of the rules override file.
type ruleFile struct {
	Rules []AttackRule `yaml:"rules"`
}

// NewStore builds a store from the built-in defaults merged with the rules
// file at path. An empty path uses the defaults alone.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active catalog snapshot.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Reload re-reads the rules file and atomically swaps in a new catalog.
// Malformed rules are skipped with a log entry; a malformed file leaves the
// previous catalog in place.
func (s *Store) Reload() error {
	merged := make(map[string]AttackRule)
	order := make([]string, 0, 16)
	for _, r := range DefaultRules() {
		merged[r.ID] = r
		order = append(order, r.ID)
	}

	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("failed to read rules file: %w", err)
		}
		var rf ruleFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return fmt.Errorf("failed to unmarshal rules YAML: %w", err)
		}
		for _, r := range rf.Rules {
			if err := r.validate(); err != nil {
				log.Printf("Warning: skipping rule %q: %v", r.ID, err)
				continue
			}
			if _, ok := merged[r.ID]; !ok {
				order = append(order, r.ID)
			}
			merged[r.ID] = r
		}
	}

	sort.Strings(order)
	rules := make([]AttackRule, 0, len(order))
	for _, id := range order {
		rules = append(rules, merged[id])
	}

	s.current.Store(&Catalog{rules: rules})
	return nil
}
