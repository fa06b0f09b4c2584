// Package watch implements the catalog polling loop: change detection against
// the set of already seen items, and the scheduler that drives one
// fetch, diff, announce, commit cycle per tick.
package watch

import (
	"sync/atomic"
	"time"

	"workshop-announcer/internal/domain/entity"
)

// Detector owns the set of item ids observed so far.
//
// The seen set is only touched by the goroutine driving the poll loop
// (Diff, Prime, Commit). Status may be called from any goroutine.
type Detector struct {
	seen map[entity.ItemID]struct{}

	primed        atomic.Bool
	seenCount     atomic.Int64
	lastCycle     atomic.Pointer[CycleReport]
	lastSuccessAt atomic.Int64 // unix nanos, 0 before the first successful cycle
}

// NewDetector returns a Detector with an empty seen set, in priming mode.
func NewDetector() *Detector {
	return &Detector{seen: make(map[entity.ItemID]struct{})}
}

// Diff returns the ids of snapshot that are not in the seen set, without
// duplicates, in the order they first appear in snapshot. priming is true
// until the first non-empty snapshot has been committed with Prime.
// Diff never modifies the seen set.
func (d *Detector) Diff(snapshot []entity.ItemID) (delta []entity.ItemID, priming bool) {
	inDelta := make(map[entity.ItemID]struct{}, len(snapshot))
	for _, id := range snapshot {
		if _, ok := d.seen[id]; ok {
			continue
		}
		if _, ok := inDelta[id]; ok {
			continue
		}
		inDelta[id] = struct{}{}
		delta = append(delta, id)
	}
	return delta, !d.primed.Load()
}

// Prime stores ids as the baseline without announcing them. An empty
// baseline does not end priming: a later snapshot would otherwise look like
// a burst of new items. It reports whether priming completed.
func (d *Detector) Prime(ids []entity.ItemID) bool {
	if len(ids) == 0 {
		return false
	}
	d.add(ids)
	d.primed.Store(true)
	return true
}

// Commit adds the ids processed in a completed cycle to the seen set.
func (d *Detector) Commit(ids []entity.ItemID) {
	d.add(ids)
}

func (d *Detector) add(ids []entity.ItemID) {
	for _, id := range ids {
		d.seen[id] = struct{}{}
	}
	d.seenCount.Store(int64(len(d.seen)))
}

// contains reports whether id is in the seen set. Only the poll goroutine
// may call it.
func (d *Detector) contains(id entity.ItemID) bool {
	_, ok := d.seen[id]
	return ok
}

// Len returns the size of the seen set.
func (d *Detector) Len() int {
	return int(d.seenCount.Load())
}

// Primed reports whether the baseline has been established.
func (d *Detector) Primed() bool {
	return d.primed.Load()
}

// recordCycle publishes the outcome of a cycle for Status.
func (d *Detector) recordCycle(r CycleReport) {
	d.lastCycle.Store(&r)
	if r.Status == CycleStatusPrimed || r.Status == CycleStatusCompleted {
		d.lastSuccessAt.Store(r.FinishedAt.UnixNano())
	}
}

// Status is a point-in-time summary of the detector, safe to share.
type Status struct {
	Primed        bool         `json:"primed"`
	SeenCount     int          `json:"seen_count"`
	LastSuccessAt *time.Time   `json:"last_success_at,omitempty"`
	LastCycle     *CycleReport `json:"last_cycle,omitempty"`
}

// Status returns the current summary. It may be called concurrently with
// the poll loop.
func (d *Detector) Status() Status {
	s := Status{
		Primed:    d.primed.Load(),
		SeenCount: int(d.seenCount.Load()),
	}
	if r := d.lastCycle.Load(); r != nil {
		rc := *r
		s.LastCycle = &rc
	}
	if ns := d.lastSuccessAt.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		s.LastSuccessAt = &t
	}
	return s
}
