// Package availability decides whether rooms, people and kit are available
// for a period, slot by slot.
package availability

import (
	"sync/atomic"

	"conprog/internal/model"
	"conprog/internal/slots"
)

// Engine answers availability questions against one timeline.
type Engine struct {
	timeline *slots.Timeline
	// noAvailMeansAlwaysAvail decides what an empty availability set means.
	noAvailMeansAlwaysAvail atomic.Bool
}

// NewEngine creates an engine with the given empty-set policy.
func NewEngine(timeline *slots.Timeline, noAvailMeansAlwaysAvail bool) *Engine {
	e := &Engine{timeline: timeline}
	e.noAvailMeansAlwaysAvail.Store(noAvailMeansAlwaysAvail)
	return e
}

// SetPolicy changes the empty-set policy, e.g. after a config reload.
func (e *Engine) SetPolicy(noAvailMeansAlwaysAvail bool) {
	e.noAvailMeansAlwaysAvail.Store(noAvailMeansAlwaysAvail)
}

// Policy returns the current empty-set policy.
func (e *Engine) Policy() bool {
	return e.noAvailMeansAlwaysAvail.Load()
}

// IsAvailable reports whether entity is available for the whole of p.
// With no availability records the policy flag decides. Otherwise every slot
// starting inside p must be one of the entity's available slots, compared by
// (day, start). A period occupying no slots is available.
func (e *Engine) IsAvailable(entity model.Availabler, p slots.Period) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	ids := entity.AvailableSlots()
	if len(ids) == 0 {
		return e.Policy(), nil
	}

	snap := e.timeline.Snapshot()
	avail := make(map[model.SlotKey]struct{}, len(ids))
	for _, id := range ids {
		if s, ok := snap.Slot(id); ok {
			avail[s.Key()] = struct{}{}
		}
	}

	occupied, err := e.timeline.Occupied(p)
	if err != nil {
		return false, err
	}
	for _, s := range occupied {
		if _, ok := avail[s.Key()]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// ItemAvailable checks entity against the period of an item.
func (e *Engine) ItemAvailable(entity model.Availabler, it model.Item) (bool, error) {
	p, err := e.timeline.ItemPeriod(it)
	if err != nil {
		return false, err
	}
	return e.IsAvailable(entity, p)
}

// RoomAssignmentAvailable checks entity against a room assignment's period.
func (e *Engine) RoomAssignmentAvailable(entity model.Availabler, a model.KitRoomAssignment) (bool, error) {
	p, err := e.timeline.RoomAssignmentPeriod(a)
	if err != nil {
		return false, err
	}
	return e.IsAvailable(entity, p)
}
