package transport

import (
	"hash/fnv"
	"sort"
	"sync/atomic"
)

// LoadBalancer picks which node answers a given call, implementing two
// placement strategies: permanent placement (the same key should keep
// landing on the same node across calls, so a component's state stays
// put) and transient placement (any node will do, spread evenly).
type LoadBalancer struct {
	roundRobin atomic.Uint64
}

// SelectPermanent deterministically maps key onto one of nodes using
// consistent hashing: the same key keeps landing on the same node as
// long as the node set doesn't change. nodes is sorted internally, so
// callers don't need to pass a stable order.
func (lb *LoadBalancer) SelectPermanent(key string, nodes []string) (string, bool) {
	if len(nodes) == 0 {
		return "", false
	}
	sorted := append([]string{}, nodes...)
	sort.Strings(sorted)

	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	idx := h.Sum64() % uint64(len(sorted))
	return sorted[idx], true
}

// SelectTransient picks the next node in round-robin order. nodes is
// sorted internally so the rotation is deterministic across calls even
// if the caller's slice order varies.
func (lb *LoadBalancer) SelectTransient(nodes []string) (string, bool) {
	if len(nodes) == 0 {
		return "", false
	}
	sorted := append([]string{}, nodes...)
	sort.Strings(sorted)

	idx := lb.roundRobin.Add(1) - 1
	return sorted[idx%uint64(len(sorted))], true
}
