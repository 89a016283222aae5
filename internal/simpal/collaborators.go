package simpal

import (
	"context"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/goliboscore/sigcore"
)

// ThreadController implements sigcore.ThreadController. Wakeup delivers a
// non-blocking notification into a per-tid buffered channel, the same
// "don't block the producer" shape this corpus uses for cross-goroutine
// signal notification — a real wakeup call crosses threads and must
// never stall the thread that observed the new signal.
type ThreadController struct {
	mu       sync.Mutex
	wakeCh   map[int32]chan struct{}
	internal map[int32]bool

	killedGroups []killCall
	exits        []exitCall
	checkpoints  []checkpointCall
}

type killCall struct {
	Tgid int32
	Sig  unix.Signal
}

type exitCall struct {
	Status int
	Sig    unix.Signal
}

type checkpointCall struct {
	Tid     int32
	Session int64
}

// NewThreadController returns a ready-to-use ThreadController.
func NewThreadController() *ThreadController {
	return &ThreadController{
		wakeCh:   make(map[int32]chan struct{}),
		internal: make(map[int32]bool),
	}
}

// WakeChan returns (creating if necessary) the channel tid's Wakeup calls
// deliver to, so a test can observe a cross-thread interrupt.
func (c *ThreadController) WakeChan(tid int32) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wakeChanLocked(tid)
}

func (c *ThreadController) wakeChanLocked(tid int32) chan struct{} {
	ch, ok := c.wakeCh[tid]
	if !ok {
		ch = make(chan struct{}, 1)
		c.wakeCh[tid] = ch
	}
	return ch
}

// MarkInternal flags tid as an internal LibOS thread for IsInternalThread.
func (c *ThreadController) MarkInternal(tid int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.internal[tid] = true
}

func (c *ThreadController) Wakeup(ctx context.Context, tid int32) error {
	c.mu.Lock()
	ch := c.wakeChanLocked(tid)
	c.mu.Unlock()
	select {
	case ch <- struct{}{}:
	default:
	}
	return nil
}

func (c *ThreadController) KillProcessGroup(ctx context.Context, tgid int32, sig unix.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killedGroups = append(c.killedGroups, killCall{Tgid: tgid, Sig: sig})
	return nil
}

func (c *ThreadController) JoinCheckpoint(ctx context.Context, tid int32, session int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkpoints = append(c.checkpoints, checkpointCall{Tid: tid, Session: session})
	return nil
}

func (c *ThreadController) ExitThreadOrProcess(ctx context.Context, status int, sig unix.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exits = append(c.exits, exitCall{Status: status, Sig: sig})
}

func (c *ThreadController) IsInternalThread(tid int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internal[tid]
}

// Exits returns every ExitThreadOrProcess call observed so far.
func (c *ThreadController) Exits() []exitCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]exitCall, len(c.exits))
	copy(out, c.exits)
	return out
}

// KilledGroups returns every KillProcessGroup call observed so far.
func (c *ThreadController) KilledGroups() []killCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]killCall, len(c.killedGroups))
	copy(out, c.killedGroups)
	return out
}

// VMAResolver implements sigcore.VMAResolver over a static map of pages
// to VMAInfo, configured directly by the test driving a scenario.
type VMAResolver struct {
	mu       sync.Mutex
	vmas     map[uintptr]sigcore.VMAInfo
	adjacent map[uintptr]bool
}

// NewVMAResolver returns an empty VMAResolver.
func NewVMAResolver() *VMAResolver {
	return &VMAResolver{
		vmas:     make(map[uintptr]sigcore.VMAInfo),
		adjacent: make(map[uintptr]bool),
	}
}

// MapVMA registers info for the page containing addr.
func (v *VMAResolver) MapVMA(addr uintptr, info sigcore.VMAInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vmas[pageOf(addr)] = info
}

// MarkAdjacent records that addr's page is within an application-owned
// VMA, for the enclave probe strategy's IsInAdjacentVMAs check.
func (v *VMAResolver) MarkAdjacent(addr uintptr) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.adjacent[pageOf(addr)] = true
}

func (v *VMAResolver) LookupVMA(addr uintptr) (sigcore.VMAInfo, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	info, ok := v.vmas[pageOf(addr)]
	return info, ok
}

func (v *VMAResolver) IsInAdjacentVMAs(addr uintptr, size uintptr) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.adjacent[pageOf(addr)]
}

// FPState implements sigcore.FPState with a fixed, configurable size.
type FPState struct {
	Size uint32
}

func (f FPState) XStateSize() uint32 { return f.Size }
