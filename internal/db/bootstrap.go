package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conprog/internal/config"
	"conprog/internal/model"
	"conprog/internal/slots"
)

var ErrNoRooms = errors.New("convention has no rooms")

// Bootstrap creates the days, slot grid, rooms and kit of a fresh database
// from the convention layout, together with the undefined records every
// snapshot needs. It does nothing and returns false when days already exist.
func (db *DB) Bootstrap(ctx context.Context, conv *config.ConventionConfig) (bool, error) {
	if len(conv.Rooms) == 0 {
		return false, ErrNoRooms
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var days int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM days").Scan(&days); err != nil {
		return false, fmt.Errorf("count days: %w", err)
	}
	if days > 0 {
		return false, nil
	}

	undefLength, err := insertLength(ctx, tx, model.SlotLength{Name: "Undefined", IsUndefined: true})
	if err != nil {
		return false, fmt.Errorf("insert undefined length: %w", err)
	}
	defaultLength := int64(0)
	noDefaultLength := !anyDefault(conv.Lengths, func(l config.LengthConfig) bool { return l.Default })
	for i, l := range conv.Lengths {
		isDefault := l.Default || (i == 0 && noDefaultLength)
		id, err := insertLength(ctx, tx, model.SlotLength{Name: l.Name, Minutes: l.Minutes, IsDefault: isDefault})
		if err != nil {
			return false, fmt.Errorf("insert length %q: %w", l.Name, err)
		}
		if isDefault {
			defaultLength = id
		}
	}

	undefDay, err := insertDay(ctx, tx, model.Day{Name: "Undefined", IsUndefined: true})
	if err != nil {
		return false, fmt.Errorf("insert undefined day: %w", err)
	}
	_, err = insertSlot(ctx, tx, model.Slot{
		DayID:       undefDay,
		LengthID:    undefLength,
		StartText:   "--:--",
		IsUndefined: true,
	})
	if err != nil {
		return false, fmt.Errorf("insert undefined slot: %w", err)
	}

	noDefaultDay := !anyDefault(conv.Days, func(d config.DayConfig) bool { return d.Default })
	defaultSlotSet := false
	for i, d := range conv.Days {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return false, fmt.Errorf("day %q: %w", d.Name, err)
		}
		isDefault := d.Default || (i == 0 && noDefaultDay)
		dayID, err := insertDay(ctx, tx, model.Day{
			Name: d.Name, Date: date, Order: i + 1, Visible: true, IsDefault: isDefault,
		})
		if err != nil {
			return false, fmt.Errorf("insert day %q: %w", d.Name, err)
		}
		if d.Schedule == nil {
			continue
		}

		grid, err := slots.GenerateSlots(dayID, d.Schedule.DaySchedule())
		if err != nil {
			return false, fmt.Errorf("day %q grid: %w", d.Name, err)
		}
		for j, s := range grid {
			s.LengthID = defaultLength
			if isDefault && j == 0 {
				s.IsDefault = true
				defaultSlotSet = true
			}
			if _, err := insertSlot(ctx, tx, s); err != nil {
				return false, fmt.Errorf("insert slot %s on %q: %w", s.StartText, d.Name, err)
			}
		}
	}
	if !defaultSlotSet {
		return false, fmt.Errorf("default day has no slot grid")
	}

	if _, err := insertRoom(ctx, tx, model.Room{Name: "Nowhere", IsUndefined: true}); err != nil {
		return false, fmt.Errorf("insert undefined room: %w", err)
	}
	noDefaultRoom := !anyDefault(conv.Rooms, func(r config.RoomConfig) bool { return r.Default })
	for i, r := range conv.Rooms {
		_, err := insertRoom(ctx, tx, model.Room{
			Name:      r.Name,
			Visible:   true,
			CanClash:  r.CanClash,
			IsDefault: r.Default || (i == 0 && noDefaultRoom),
			GridOrder: i + 1,
		})
		if err != nil {
			return false, fmt.Errorf("insert room %q: %w", r.Name, err)
		}
	}

	for _, k := range conv.Kinds {
		kindID, err := insertKind(ctx, tx, model.KitKind{Name: k.Name})
		if err != nil {
			return false, fmt.Errorf("insert kind %q: %w", k.Name, err)
		}
		for _, name := range k.Things {
			if _, err := insertThing(ctx, tx, model.KitThing{Name: name, KindID: kindID, Count: 1}); err != nil {
				return false, fmt.Errorf("insert thing %q: %w", name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	db.logger.Info().Str("convention", conv.String()).Msg("Database bootstrapped")
	return true, nil
}

func anyDefault[T any](list []T, isDefault func(T) bool) bool {
	for _, v := range list {
		if isDefault(v) {
			return true
		}
	}
	return false
}
