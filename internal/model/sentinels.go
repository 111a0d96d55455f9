package model

import "errors"

// Sentinels holds the designated default and undefined records, resolved once
// when a snapshot is built.
type Sentinels struct {
	DefaultDay          Day
	UndefinedDay        Day
	DefaultSlot         Slot
	UndefinedSlot       Slot
	DefaultSlotLength   SlotLength
	UndefinedSlotLength SlotLength
	DefaultRoom         Room
	UndefinedRoom       Room
}

// ResolveSentinels finds the default and undefined record of each kind.
// Every violation is reported, not just the first.
func ResolveSentinels(days []Day, slots []Slot, lengths []SlotLength, rooms []Room) (Sentinels, error) {
	var s Sentinels
	var errs []error

	pick := func(entity, role string, n int) bool {
		if n != 1 {
			errs = append(errs, &InvariantError{Entity: entity, Role: role, Count: n})
			return false
		}
		return true
	}

	var dd, ud []Day
	for _, d := range days {
		if d.IsDefault {
			dd = append(dd, d)
		}
		if d.IsUndefined {
			ud = append(ud, d)
		}
	}
	if pick("day", "default", len(dd)) {
		s.DefaultDay = dd[0]
	}
	if pick("day", "undefined", len(ud)) {
		s.UndefinedDay = ud[0]
	}

	var ds, us []Slot
	for _, sl := range slots {
		if sl.IsDefault {
			ds = append(ds, sl)
		}
		if sl.IsUndefined {
			us = append(us, sl)
		}
	}
	if pick("slot", "default", len(ds)) {
		s.DefaultSlot = ds[0]
	}
	if pick("slot", "undefined", len(us)) {
		s.UndefinedSlot = us[0]
	}

	var dl, ul []SlotLength
	for _, l := range lengths {
		if l.IsDefault {
			dl = append(dl, l)
		}
		if l.IsUndefined {
			ul = append(ul, l)
		}
	}
	if pick("slot_length", "default", len(dl)) {
		s.DefaultSlotLength = dl[0]
	}
	if pick("slot_length", "undefined", len(ul)) {
		s.UndefinedSlotLength = ul[0]
	}

	var dr, ur []Room
	for _, r := range rooms {
		if r.IsDefault {
			dr = append(dr, r)
		}
		if r.IsUndefined {
			ur = append(ur, r)
		}
	}
	if pick("room", "default", len(dr)) {
		s.DefaultRoom = dr[0]
	}
	if pick("room", "undefined", len(ur)) {
		s.UndefinedRoom = ur[0]
	}

	if len(errs) > 0 {
		return Sentinels{}, errors.Join(errs...)
	}
	return s, nil
}
