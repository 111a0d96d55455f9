package slots

import (
	"fmt"
	"strconv"
	"strings"

	"conprog/internal/model"
)

// DaySchedule describes the slot grid of one convention day.
type DaySchedule struct {
	StartTime   string // "09:00"
	EndTime     string // "23:00"
	BreakStart  string // "13:00" (optional)
	BreakEnd    string // "14:00" (optional)
	SlotMinutes int
}

// GenerateSlots lays out start slots for a day, every SlotMinutes from
// StartTime while a whole slot still fits before EndTime. Slots starting
// inside the break are skipped. The caller assigns ids and the length class.
func GenerateSlots(dayID int64, schedule DaySchedule) ([]model.Slot, error) {
	if schedule.SlotMinutes <= 0 {
		schedule.SlotMinutes = 30
	}

	start, err := ParseOffset(schedule.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	end, err := ParseOffset(schedule.EndTime)
	if err != nil {
		return nil, fmt.Errorf("parse end time: %w", err)
	}
	if end <= start {
		return nil, fmt.Errorf("end time %s is not after start time %s", schedule.EndTime, schedule.StartTime)
	}

	var breakStart, breakEnd int
	hasBreak := schedule.BreakStart != "" && schedule.BreakEnd != ""
	if hasBreak {
		if breakStart, err = ParseOffset(schedule.BreakStart); err != nil {
			return nil, fmt.Errorf("parse break start: %w", err)
		}
		if breakEnd, err = ParseOffset(schedule.BreakEnd); err != nil {
			return nil, fmt.Errorf("parse break end: %w", err)
		}
	}

	var out []model.Slot
	for cursor := start; cursor+schedule.SlotMinutes <= end; cursor += schedule.SlotMinutes {
		if hasBreak && cursor < breakEnd && breakStart < cursor+schedule.SlotMinutes {
			continue
		}
		text := FormatOffset(cursor)
		out = append(out, model.Slot{
			DayID:     dayID,
			Start:     cursor,
			StartText: text,
			SlotText:  text + "-" + FormatOffset(cursor+schedule.SlotMinutes),
			Visible:   true,
			Order:     len(out),
		})
	}
	return out, nil
}

// ParseOffset parses "HH:MM" into minutes after midnight.
func ParseOffset(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %w", err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}

	return hour*60 + minute, nil
}

// FormatOffset renders minutes after midnight as "HH:MM". Offsets past
// midnight keep counting hours ("25:00").
func FormatOffset(offset int) string {
	return fmt.Sprintf("%02d:%02d", offset/60, offset%60)
}

// FormatDuration formats minutes as a short human-readable string.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%dh %02dm", hours, mins)
}
