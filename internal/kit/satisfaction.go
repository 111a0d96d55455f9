// Package kit matches items' equipment requests against the kit assigned to
// them directly and through their room.
package kit

import (
	"fmt"
	"sort"

	"conprog/internal/model"
	"conprog/internal/slots"
)

// Shortfall is the number of units of one kind still needed.
type Shortfall struct {
	KindID int64  `json:"kind_id"`
	Kind   string `json:"kind"`
	Count  int    `json:"count"`
}

// Result is the outcome of matching an item's demand against its supply.
type Result struct {
	Satisfied bool          `json:"satisfied"`
	Missing   []Shortfall   `json:"missing"`
	Demand    map[int64]int `json:"demand"`
	Supply    map[int64]int `json:"supply"`
}

// Engine computes kit satisfaction against one timeline.
type Engine struct {
	timeline *slots.Timeline
}

// NewEngine creates a satisfaction engine.
func NewEngine(timeline *slots.Timeline) *Engine {
	return &Engine{timeline: timeline}
}

// Satisfaction sums demand and supply per kind and reports every kind whose
// supply falls short. Matching is by kind only.
func (e *Engine) Satisfaction(it model.Item) (Result, error) {
	demand, err := e.Demand(it)
	if err != nil {
		return Result{}, err
	}
	supply := e.DirectSupply(it)
	roomSupply, err := e.RoomSupply(it)
	if err != nil {
		return Result{}, err
	}
	for kind, n := range roomSupply {
		supply[kind] += n
	}

	snap := e.timeline.Snapshot()
	res := Result{Demand: demand, Supply: supply, Missing: []Shortfall{}}
	for kind, want := range demand {
		if have := supply[kind]; have < want {
			k, _ := snap.Kind(kind)
			res.Missing = append(res.Missing, Shortfall{KindID: kind, Kind: k.Name, Count: want - have})
		}
	}
	sort.Slice(res.Missing, func(i, j int) bool {
		if res.Missing[i].Kind != res.Missing[j].Kind {
			return res.Missing[i].Kind < res.Missing[j].Kind
		}
		return res.Missing[i].KindID < res.Missing[j].KindID
	})
	res.Satisfied = len(res.Missing) == 0
	return res, nil
}

// Demand sums the item's requests per kind. A request also referenced by
// another item is refused rather than counted twice.
func (e *Engine) Demand(it model.Item) (map[int64]int, error) {
	snap := e.timeline.Snapshot()
	demand := make(map[int64]int)
	for _, id := range it.RequestIDs {
		if snap.SharedRequest(id) {
			return nil, fmt.Errorf("%w: request %d on items %v", model.ErrSharedRequest, id, snap.RequestOwners(id))
		}
		req, ok := snap.Request(id)
		if !ok {
			return nil, fmt.Errorf("%w: kit_request %d", model.ErrUnknownReference, id)
		}
		demand[req.KindID] += req.Count
	}
	return demand, nil
}

// DirectSupply sums the counts of things assigned to the item itself.
func (e *Engine) DirectSupply(it model.Item) map[int64]int {
	snap := e.timeline.Snapshot()
	supply := make(map[int64]int)
	for _, a := range snap.ItemAssignmentsFor(it.ID) {
		if t, ok := snap.Thing(a.ThingID); ok {
			supply[t.KindID] += t.Count
		}
	}
	return supply
}

// RoomSupply sums the counts of things assigned to the item's room for a
// period covering the item. Unscheduled items get no room supply.
func (e *Engine) RoomSupply(it model.Item) (map[int64]int, error) {
	snap := e.timeline.Snapshot()
	supply := make(map[int64]int)
	if !snap.IsScheduled(it) {
		return supply, nil
	}

	itemPeriod, err := e.timeline.ItemPeriod(it)
	if err != nil {
		return nil, err
	}
	for _, a := range snap.RoomAssignmentsFor(it.RoomID) {
		covering, err := e.timeline.RoomAssignmentPeriod(a)
		if err != nil {
			return nil, err
		}
		covers, err := slots.Covers(covering, itemPeriod)
		if err != nil {
			return nil, fmt.Errorf("room assignment %d: %w", a.ID, err)
		}
		if !covers {
			continue
		}
		if t, ok := snap.Thing(a.ThingID); ok {
			supply[t.KindID] += t.Count
		}
	}
	return supply, nil
}
