package cluster

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// PointerState is the pointer sample a single Step reads. Positions are in
// the simulation's XY plane.
type PointerState struct {
	Current  mgl64.Vec2
	Previous mgl64.Vec2
	Velocity mgl64.Vec2
}

// Speed is the pointer displacement length over the last frame.
func (p PointerState) Speed() float64 {
	return p.Velocity.Len()
}

// StillPointer returns a pointer parked at pos with zero velocity.
func StillPointer(pos mgl64.Vec2) PointerState {
	return PointerState{Current: pos, Previous: pos}
}

// Pointer buffers asynchronous input samples between frames. Input
// callbacks call Sample from any goroutine; the frame loop calls Latch once
// per frame. The most recent sample wins.
type Pointer struct {
	mu       sync.Mutex
	latest   mgl64.Vec2
	previous mgl64.Vec2
}

// NewPointer returns a pointer resting at pos.
func NewPointer(pos mgl64.Vec2) *Pointer {
	return &Pointer{latest: pos, previous: pos}
}

// Sample records the newest pointer position.
func (p *Pointer) Sample(pos mgl64.Vec2) {
	p.mu.Lock()
	p.latest = pos
	p.mu.Unlock()
}

// Latch returns the state for the coming frame and rolls the previous
// position forward, so a pointer that does not move yields zero velocity.
func (p *Pointer) Latch() PointerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PointerState{
		Current:  p.latest,
		Previous: p.previous,
		Velocity: p.latest.Sub(p.previous),
	}
	p.previous = p.latest
	return st
}

// Reset parks the pointer at pos, as on scene mount.
func (p *Pointer) Reset(pos mgl64.Vec2) {
	p.mu.Lock()
	p.latest = pos
	p.previous = pos
	p.mu.Unlock()
}

// Position returns the most recent sample without latching.
func (p *Pointer) Position() mgl64.Vec2 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}
