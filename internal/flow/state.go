// Package flow implements the §4.10 flow runtime: a DAG of operators,
// each with an isolated raw-KV state keyspace, consuming FlowChange
// records derived from the CDC stream to incrementally maintain
// materialized views. Grounded on the teacher's internal/storage/mvcc.go
// (the KV-store shape operator state reuses) and internal/engine/exec.go
// (the aggregate/window accumulator patterns, here made persistent
// per-operator instead of transient per-query).
package flow

import (
	"encoding/json"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/store"
)

// NodeState is one operator's raw-KV state accessor, scoped to
// (flow, node) so no two operators can see each other's keys even if
// they happen to choose the same logical key (§4.10).
type NodeState struct {
	store *store.SingleVersionStore
	flow  keycode.FlowId
	node  keycode.FlowNodeId
}

// NewNodeState binds a state accessor to one operator instance.
func NewNodeState(s *store.SingleVersionStore, flow keycode.FlowId, node keycode.FlowNodeId) *NodeState {
	return &NodeState{store: s, flow: flow, node: node}
}

func (n *NodeState) encodeKey(stateKey []byte) []byte {
	return keycode.FlowNodeState(n.flow, n.node, stateKey).Encode()
}

// Get reads the raw bytes stored under stateKey, if any.
func (n *NodeState) Get(stateKey []byte) ([]byte, bool) {
	return n.store.Get(n.encodeKey(stateKey))
}

// Set writes stateKey = value.
func (n *NodeState) Set(stateKey, value []byte) error {
	return n.store.Commit([]store.SingleVersionWrite{{Key: n.encodeKey(stateKey), Value: value}})
}

// Remove deletes stateKey.
func (n *NodeState) Remove(stateKey []byte) error {
	return n.store.Commit([]store.SingleVersionWrite{{Key: n.encodeKey(stateKey), Value: nil}})
}

// Range returns every (stateKey, value) pair in [start, end) within
// this operator's keyspace, with the (flow, node) prefix stripped back
// off each returned key.
func (n *NodeState) Range(start, end []byte) []store.KV {
	prefix := keycode.FlowNodeStatePrefix(n.flow, n.node)
	fullStart := keycode.FlowNodeState(n.flow, n.node, start).Encode()
	var fullEnd []byte
	if end == nil {
		_, e := keycode.FullScan(keycode.KindFlowNodeState, prefix)
		fullEnd = e
	} else {
		fullEnd = keycode.FlowNodeState(n.flow, n.node, end).Encode()
	}
	raw := n.store.Range(fullStart, fullEnd)
	out := make([]store.KV, 0, len(raw))
	for _, kv := range raw {
		k, err := keycode.Decode(kv.Key)
		if err != nil {
			continue
		}
		stateKey := k.Body[16:] // strip the 8+8 byte (flow,node) prefix
		out = append(out, store.KV{Key: stateKey, Value: kv.Value})
	}
	return out
}

// Scan returns every (stateKey, value) pair this operator owns.
func (n *NodeState) Scan() []store.KV {
	return n.Range(nil, nil)
}

// Clear removes every key this operator owns.
func (n *NodeState) Clear() error {
	for _, kv := range n.Scan() {
		if err := n.Remove(kv.Key); err != nil {
			return err
		}
	}
	return nil
}

// StateCache is a write-through LRU in front of NodeState (§4.10):
// reads are deduplicated through the cache, and every mutation writes
// back to the underlying store before being cached, so a crash never
// loses an acknowledged write.
type StateCache[V any] struct {
	state    *NodeState
	capacity int
	order    []string // most-recently-used at the end
	cache    map[string]V
}

// NewStateCache builds a write-through cache over state with the given
// maximum resident entry count.
func NewStateCache[V any](state *NodeState, capacity int) *StateCache[V] {
	if capacity <= 0 {
		capacity = 1000
	}
	return &StateCache[V]{state: state, capacity: capacity, cache: map[string]V{}}
}

// Get loads a value, consulting the cache first and falling back to the
// underlying store (decoding via JSON, a stable-enough binary encoding
// for this engine's accumulator state shapes).
func (c *StateCache[V]) Get(key []byte, zero V) (V, error) {
	sk := string(key)
	if v, ok := c.cache[sk]; ok {
		c.touch(sk)
		return v, nil
	}
	raw, ok := c.state.Get(key)
	if !ok {
		c.put(sk, zero)
		return zero, nil
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, diagnostic.Wrap(err, "decode flow operator state")
	}
	c.put(sk, v)
	return v, nil
}

// Update atomically loads (or default-constructs via zero), applies f,
// persists the result to the underlying store, and refreshes the cache
// — the `update(ctx, k, f)` primitive of §4.10.
func (c *StateCache[V]) Update(key []byte, zero V, f func(V) V) (V, error) {
	cur, err := c.Get(key, zero)
	if err != nil {
		return cur, err
	}
	next := f(cur)
	raw, err := json.Marshal(next)
	if err != nil {
		return cur, diagnostic.Wrap(err, "encode flow operator state")
	}
	if err := c.state.Set(key, raw); err != nil {
		return cur, err
	}
	c.put(string(key), next)
	return next, nil
}

// Remove deletes key from both the cache and the underlying store.
func (c *StateCache[V]) Remove(key []byte) error {
	delete(c.cache, string(key))
	for i, k := range c.order {
		if k == string(key) {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return c.state.Remove(key)
}

func (c *StateCache[V]) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

func (c *StateCache[V]) put(key string, v V) {
	c.cache[key] = v
	c.touch(key)
	for len(c.order) > c.capacity {
		evict := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, evict)
	}
}
