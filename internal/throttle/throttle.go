package throttle

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

// Throttle suppresses duplicate verdict emissions for the same (source IP,
// attack type) pair within the cool-down window, so a sustained attack does
// not flood downstream sinks with one alert per packet. It only gates
// emission; verdict computation is unaffected.
type Throttle struct {
	shards   []*shard
	cooldown time.Duration
}

type shard struct {
	lastEmitted map[string]time.Time
	mu          sync.Mutex
}

// New creates a throttle with the given cool-down window.
func New(cooldown time.Duration) *Throttle {
	t := &Throttle{
		shards:   make([]*shard, shardCount),
		cooldown: cooldown,
	}
	for i := range t.shards {
		t.shards[i] = &shard{lastEmitted: make(map[string]time.Time)}
	}
	return t
}

// ShouldEmit reports whether a verdict for (sourceIP, attackType) may be
// emitted at the given time, and records the emission if so. Entries older
// than twice the cool-down are cleaned up opportunistically on each visit to
// a shard.
func (t *Throttle) ShouldEmit(sourceIP, attackType string, now time.Time) bool {
	key := sourceIP + "|" + attackType
	s := t.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, last := range s.lastEmitted {
		if now.Sub(last) > 2*t.cooldown {
			delete(s.lastEmitted, k)
		}
	}

	if last, ok := s.lastEmitted[key]; ok && now.Sub(last) < t.cooldown {
		return false
	}
	s.lastEmitted[key] = now
	return true
}

// Active returns the number of keys currently inside a cool-down window.
func (t *Throttle) Active() int {
	count := 0
	for _, s := range t.shards {
		s.mu.Lock()
		count += len(s.lastEmitted)
		s.mu.Unlock()
	}
	return count
}

func (t *Throttle) getShard(key string) *shard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	return t.shards[hasher.Sum32()%shardCount]
}
