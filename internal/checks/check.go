// Package checks scans a programme snapshot for clashes and missing data.
// Each rule is independent; a Registry resolves rules by name and a Runner
// executes the enabled subset.
package checks

import (
	"conprog/internal/availability"
	"conprog/internal/kit"
	"conprog/internal/model"
	"conprog/internal/slots"
)

// Shape tells a renderer how to lay out a rule's violations.
type Shape string

const (
	ShapePersonList   Shape = "Person List"
	ShapeItemList     Shape = "Item List"
	ShapeRoomList     Shape = "Room List"
	ShapeKitThingList Shape = "Kit Thing List"
	ShapeMixedTuple   Shape = "Mixed Tuple List"
)

// Descriptor names and describes a rule.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Shape       Shape  `json:"shape"`
}

// RefKind is the entity type a Ref points to.
type RefKind string

const (
	RefItem              RefKind = "item"
	RefPerson            RefKind = "person"
	RefRoom              RefKind = "room"
	RefKitThing          RefKind = "kit_thing"
	RefKitRoomAssignment RefKind = "kit_room_assignment"
	RefKitItemAssignment RefKind = "kit_item_assignment"
)

// Ref identifies one entity in a violation.
type Ref struct {
	Kind  RefKind `json:"kind"`
	ID    int64   `json:"id"`
	Label string  `json:"label"`
}

// Violation is one reported problem: a single entity, a pair or a triple.
type Violation []Ref

// Rule is a named consistency check over a snapshot. A rule either returns
// all of its violations or an error, never a partial list.
type Rule interface {
	Descriptor() Descriptor
	Run(env *Env) ([]Violation, error)
}

// Output is the result of running one rule.
type Output struct {
	Check      Descriptor  `json:"check"`
	Count      int         `json:"count"`
	Violations []Violation `json:"violations"`
}

// Env is everything a rule may consult. Engines share the snapshot.
type Env struct {
	Snapshot     *model.Snapshot
	Timeline     *slots.Timeline
	Availability *availability.Engine
	Kit          *kit.Engine
}

// NewEnv builds engines over snap.
func NewEnv(snap *model.Snapshot, noAvailMeansAlwaysAvail bool) *Env {
	tl := slots.NewTimeline(snap)
	return &Env{
		Snapshot:     snap,
		Timeline:     tl,
		Availability: availability.NewEngine(tl, noAvailMeansAlwaysAvail),
		Kit:          kit.NewEngine(tl),
	}
}

type rule struct {
	desc Descriptor
	run  func(env *Env) ([]Violation, error)
}

func (r rule) Descriptor() Descriptor { return r.desc }

func (r rule) Run(env *Env) ([]Violation, error) {
	out, err := r.run(env)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Violation{}
	}
	return out, nil
}

func itemRef(it model.Item) Ref {
	return Ref{Kind: RefItem, ID: it.ID, Label: it.DisplayName()}
}

func personRef(p model.Person) Ref {
	return Ref{Kind: RefPerson, ID: p.ID, Label: p.DisplayName()}
}

func roomRef(r model.Room) Ref {
	return Ref{Kind: RefRoom, ID: r.ID, Label: r.Name}
}

func thingRef(t model.KitThing) Ref {
	return Ref{Kind: RefKitThing, ID: t.ID, Label: t.Name}
}

func roomAssignmentRef(snap *model.Snapshot, a model.KitRoomAssignment) Ref {
	t, _ := snap.Thing(a.ThingID)
	r, _ := snap.Room(a.RoomID)
	return Ref{Kind: RefKitRoomAssignment, ID: a.ID, Label: t.Name + " in " + r.Name}
}

func itemAssignmentRef(snap *model.Snapshot, a model.KitItemAssignment) Ref {
	t, _ := snap.Thing(a.ThingID)
	it, _ := snap.Item(a.ItemID)
	return Ref{Kind: RefKitItemAssignment, ID: a.ID, Label: t.Name + " for " + it.DisplayName()}
}
