// Package threadgroup adapts the teacher's container/list doubly-linked
// list into a concurrency-safe process-group thread registry.
//
// The default-handler terminate path (spec.md §4.5) waits until the
// current thread is the last one alive, which needs a live, mutable
// membership set rather than a generic container; the SIGKILL broadcast
// itself goes through the ThreadController, not through Broadcast here.
// Membership is a tid-keyed map guarded by a mutex for add/remove/iterate,
// with an explicit member type instead of the stock interface{} Element.
package threadgroup

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Member is anything that can be registered in a Group: a thread handle
// that reports its TID and whether it is still alive.
type Member interface {
	// TID returns the member's thread identifier, used for ascending-tid
	// ordering when a deterministic broadcast order matters for tests.
	TID() int32
	// Alive reports whether the thread has not yet exited.
	Alive() bool
}

// Group is a process-wide registry of threads, analogous to the process
// group original_source's do_kill_proc/check_last_thread walk.
type Group struct {
	mu      sync.Mutex
	members map[int32]Member
}

// NewGroup returns an empty, ready-to-use Group.
func NewGroup() *Group {
	return &Group{members: make(map[int32]Member)}
}

// Register adds m to the group. Re-registering the same TID replaces the
// previous entry.
func (g *Group) Register(m Member) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[m.TID()] = m
}

// Unregister removes the member with the given tid, if present.
func (g *Group) Unregister(tid int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, tid)
}

// Broadcast calls fn for every currently registered member, in ascending
// TID order for determinism (original_source's do_kill_proc iterates the
// process's thread list, which has no such guarantee, but a deterministic
// order makes this package's own tests reproducible without changing
// delivery semantics — every member still gets exactly one call).
func (g *Group) Broadcast(fn func(Member)) {
	g.mu.Lock()
	members := make([]Member, 0, len(g.members))
	for _, m := range g.members {
		members = append(members, m)
	}
	g.mu.Unlock()

	slices.SortFunc(members, func(a, b Member) int { return int(a.TID()) - int(b.TID()) })
	for _, m := range members {
		fn(m)
	}
}

// LastAlive reports whether self is the only member still alive, mirroring
// original_source's check_last_thread spin condition used by the terminate
// winner.
func (g *Group) LastAlive(self Member) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for tid, m := range g.members {
		if tid == self.TID() {
			continue
		}
		if m.Alive() {
			return false
		}
	}
	return true
}

// Len reports the number of registered members.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}
