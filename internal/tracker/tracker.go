package tracker

import (
	"hash/fnv"
	"sync"
	"time"

	"NetSentinel/internal/model"
)

const defaultShardCount = 256

// authPorts are destinations whose TCP RST responses count as failed
// authentication attempts (FTP, SSH, Telnet, RDP).
var authPorts = map[uint16]bool{21: true, 22: true, 23: true, 3389: true}

// entry is one observation retained in a source IP's sliding window.
type entry struct {
	ts     time.Time
	port   uint16
	failed bool
}

// flowState is the mutable per-source-IP window, owned by its shard.
type flowState struct {
	entries  []entry
	lastSeen time.Time
}

// shard is a part of the sharded state map with its own lock, so updates for
// distinct source IPs do not contend.
type shard struct {
	states map[string]*flowState
	mu     sync.Mutex
}

// Tracker maintains per-source-IP sliding-window counters used by rule
// evaluation. It owns all flow state exclusively; callers only ever see
// immutable snapshots.
type Tracker struct {
	shards      []*shard
	shardCount  uint32
	retention   time.Duration
	idleTimeout time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a tracker with the given window retention and idle-IP eviction
// timeout.
func New(retention, idleTimeout time.Duration) *Tracker {
	t := &Tracker{
		shards:      make([]*shard, defaultShardCount),
		shardCount:  defaultShardCount,
		retention:   retention,
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	for i := range t.shards {
		t.shards[i] = &shard{states: make(map[string]*flowState)}
	}
	return t
}

func (t *Tracker) getShard(key string) *shard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	return t.shards[hasher.Sum32()%t.shardCount]
}

// Update evicts stale window entries for the observation's source IP, appends
// the new observation, and returns an immutable snapshot of the resulting
// state. Malformed observations are rejected with ErrInvalidObservation
// before any state mutation.
func (t *Tracker) Update(obs *model.FlowObservation) (model.FlowStateSnapshot, error) {
	if err := obs.Validate(); err != nil {
		return model.FlowStateSnapshot{}, err
	}

	key := obs.SrcIP.String()
	s := t.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[key]
	if !ok {
		state = &flowState{}
		s.states[key] = state
	}

	state.evict(obs.Timestamp.Add(-t.retention))
	state.entries = append(state.entries, entry{
		ts:     obs.Timestamp,
		port:   obs.DstPort,
		failed: isFailedAuth(obs),
	})
	if obs.Timestamp.After(state.lastSeen) {
		state.lastSeen = obs.Timestamp
	}

	return state.snapshot(key), nil
}

// Peek returns the current snapshot for a source IP without recording an
// observation. Stale entries are still evicted first, relative to now.
func (t *Tracker) Peek(srcIP string, now time.Time) (model.FlowStateSnapshot, bool) {
	s := t.getShard(srcIP)
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[srcIP]
	if !ok {
		return model.FlowStateSnapshot{}, false
	}
	state.evict(now.Add(-t.retention))
	return state.snapshot(srcIP), true
}

// TrackedSources returns the number of source IPs currently tracked.
func (t *Tracker) TrackedSources() int {
	count := 0
	for _, s := range t.shards {
		s.mu.Lock()
		count += len(s.states)
		s.mu.Unlock()
	}
	return count
}

// Start launches the idle-IP eviction loop.
func (t *Tracker) Start() {
	t.wg.Add(1)
	go t.evictionLoop()
}

// Stop shuts down the eviction loop.
func (t *Tracker) Stop() {
	close(t.done)
	t.wg.Wait()
}

func (t *Tracker) evictionLoop() {
	defer t.wg.Done()
	interval := t.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.EvictIdle(time.Now())
		case <-t.done:
			return
		}
	}
}

// EvictIdle drops state for source IPs with no observations since the idle
// timeout, relative to now.
func (t *Tracker) EvictIdle(now time.Time) int {
	cutoff := now.Add(-t.idleTimeout)
	evicted := 0
	for _, s := range t.shards {
		s.mu.Lock()
		for key, state := range s.states {
			if state.lastSeen.Before(cutoff) {
				delete(s.states, key)
				evicted++
			}
		}
		s.mu.Unlock()
	}
	return evicted
}

// evict drops the window prefix older than the cutoff. Entries arrive in
// near-chronological order, so a prefix scan suffices.
func (st *flowState) evict(cutoff time.Time) {
	i := 0
	for i < len(st.entries) && st.entries[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		st.entries = append(st.entries[:0], st.entries[i:]...)
	}
}

// snapshot computes the immutable view of the current window. The connection
// rate is computed over the observed span within the window, with a one
// second floor, so a burst of 12 packets over 2 seconds reports 6/s.
func (st *flowState) snapshot(key string) model.FlowStateSnapshot {
	ports := make(map[uint16]struct{}, len(st.entries))
	failed := 0
	for _, e := range st.entries {
		ports[e.port] = struct{}{}
		if e.failed {
			failed++
		}
	}

	span := 1.0
	if len(st.entries) > 1 {
		span = st.entries[len(st.entries)-1].ts.Sub(st.entries[0].ts).Seconds()
		if span < 1 {
			span = 1
		}
	}

	return model.FlowStateSnapshot{
		SrcIP:            key,
		TotalConnections: len(st.entries),
		UniquePorts:      len(ports),
		FailedAttempts:   failed,
		ConnectionRate:   float64(len(st.entries)) / span,
		WindowSeconds:    span,
		LastSeen:         st.lastSeen,
	}
}

// isFailedAuth implements the failed-authentication heuristic: a TCP RST on a
// connection to a well-known authentication port.
func isFailedAuth(obs *model.FlowObservation) bool {
	return obs.Protocol == model.ProtoTCP &&
		authPorts[obs.DstPort] &&
		obs.TCPFlags&model.FlagRST != 0
}
