package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"conprog/internal/slots"
)

const DefaultConventionPath = "configs/convention.yaml"

// DayConfig is one convention day with an optional slot grid.
type DayConfig struct {
	Name     string          `yaml:"name"`
	Date     string          `yaml:"date"` // "2026-04-03"
	Default  bool            `yaml:"default"`
	Schedule *ScheduleConfig `yaml:"schedule,omitempty"`
}

// ScheduleConfig describes the slot grid for a day.
type ScheduleConfig struct {
	StartTime   string `yaml:"start_time"`            // "09:00"
	EndTime     string `yaml:"end_time"`              // "23:00"
	SlotMinutes int    `yaml:"slot_minutes"`          // 30
	BreakStart  string `yaml:"break_start,omitempty"` // "13:00"
	BreakEnd    string `yaml:"break_end,omitempty"`
}

type RoomConfig struct {
	Name        string `yaml:"name"`
	CanClash    bool   `yaml:"can_clash"`
	Default     bool   `yaml:"default"`
	Description string `yaml:"description"`
}

type LengthConfig struct {
	Name    string `yaml:"name"`
	Minutes int    `yaml:"minutes"`
	Default bool   `yaml:"default"`
}

type KindConfig struct {
	Name   string   `yaml:"name"`
	Things []string `yaml:"things"`
}

// ConventionConfig is the root of convention.yaml.
type ConventionConfig struct {
	Name     string         `yaml:"name"`
	Days     []DayConfig    `yaml:"days"`
	Rooms    []RoomConfig   `yaml:"rooms"`
	Lengths  []LengthConfig `yaml:"lengths"`
	Kinds    []KindConfig   `yaml:"kinds"`
	Defaults struct {
		Schedule *ScheduleConfig `yaml:"schedule"`
	} `yaml:"defaults"`
}

// LoadConvention loads and validates the convention layout from YAML.
func LoadConvention(path string) (*ConventionConfig, error) {
	if path == "" {
		path = DefaultConventionPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read convention config: %w", err)
	}

	var cfg ConventionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse convention config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate convention config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the convention layout for errors.
func (c *ConventionConfig) Validate() error {
	if len(c.Days) == 0 {
		return fmt.Errorf("no days defined")
	}

	names := make(map[string]bool)
	dates := make(map[string]bool)
	defaults := 0
	for i, d := range c.Days {
		if d.Name == "" {
			return fmt.Errorf("day[%d]: name is required", i)
		}
		if names[d.Name] {
			return fmt.Errorf("day[%d]: duplicate name '%s'", i, d.Name)
		}
		names[d.Name] = true

		if _, err := time.Parse("2006-01-02", d.Date); err != nil {
			return fmt.Errorf("day[%d]: invalid date format '%s', expected YYYY-MM-DD", i, d.Date)
		}
		if dates[d.Date] {
			return fmt.Errorf("day[%d]: duplicate date %s", i, d.Date)
		}
		dates[d.Date] = true

		if d.Default {
			defaults++
		}
		if d.Schedule != nil {
			if err := validateSchedule(d.Schedule, fmt.Sprintf("day[%d].schedule", i)); err != nil {
				return err
			}
		}
	}
	if defaults > 1 {
		return fmt.Errorf("days: at most one default day, got %d", defaults)
	}

	names = make(map[string]bool)
	defaults = 0
	for i, r := range c.Rooms {
		if r.Name == "" {
			return fmt.Errorf("room[%d]: name is required", i)
		}
		if names[r.Name] {
			return fmt.Errorf("room[%d]: duplicate name '%s'", i, r.Name)
		}
		names[r.Name] = true
		if r.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("rooms: at most one default room, got %d", defaults)
	}

	names = make(map[string]bool)
	defaults = 0
	for i, l := range c.Lengths {
		if l.Minutes <= 0 {
			return fmt.Errorf("length[%d]: minutes must be positive, got %d", i, l.Minutes)
		}
		if l.Name == "" {
			return fmt.Errorf("length[%d]: name is required", i)
		}
		if names[l.Name] {
			return fmt.Errorf("length[%d]: duplicate name '%s'", i, l.Name)
		}
		names[l.Name] = true
		if l.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("lengths: at most one default length, got %d", defaults)
	}

	names = make(map[string]bool)
	for i, k := range c.Kinds {
		if k.Name == "" {
			return fmt.Errorf("kind[%d]: name is required", i)
		}
		if names[k.Name] {
			return fmt.Errorf("kind[%d]: duplicate name '%s'", i, k.Name)
		}
		names[k.Name] = true
	}

	if c.Defaults.Schedule != nil {
		if err := validateSchedule(c.Defaults.Schedule, "defaults.schedule"); err != nil {
			return err
		}
	}

	return nil
}

func validateSchedule(s *ScheduleConfig, prefix string) error {
	if s.StartTime == "" {
		return fmt.Errorf("%s.start_time is required", prefix)
	}
	if s.EndTime == "" {
		return fmt.Errorf("%s.end_time is required", prefix)
	}

	start, err := slots.ParseOffset(s.StartTime)
	if err != nil {
		return fmt.Errorf("%s.start_time: invalid format '%s', expected HH:MM", prefix, s.StartTime)
	}
	end, err := slots.ParseOffset(s.EndTime)
	if err != nil {
		return fmt.Errorf("%s.end_time: invalid format '%s', expected HH:MM", prefix, s.EndTime)
	}
	if end <= start {
		return fmt.Errorf("%s: end_time must be after start_time", prefix)
	}

	if s.SlotMinutes <= 0 {
		return fmt.Errorf("%s.slot_minutes must be positive", prefix)
	}

	if s.BreakStart != "" && s.BreakEnd != "" {
		bs, err := slots.ParseOffset(s.BreakStart)
		if err != nil {
			return fmt.Errorf("%s.break_start: invalid format '%s', expected HH:MM", prefix, s.BreakStart)
		}
		be, err := slots.ParseOffset(s.BreakEnd)
		if err != nil {
			return fmt.Errorf("%s.break_end: invalid format '%s', expected HH:MM", prefix, s.BreakEnd)
		}
		if be <= bs {
			return fmt.Errorf("%s: break_end must be after break_start", prefix)
		}
		if bs < start || be > end {
			return fmt.Errorf("%s: break must be within the day", prefix)
		}
	}

	return nil
}

func (c *ConventionConfig) applyDefaults() {
	for i := range c.Days {
		if c.Days[i].Schedule == nil && c.Defaults.Schedule != nil {
			c.Days[i].Schedule = c.Defaults.Schedule
		}
	}
	if len(c.Lengths) == 0 {
		c.Lengths = []LengthConfig{{Name: "1 hour", Minutes: 60, Default: true}}
	}
}

// DayByName returns the day config by name.
func (c *ConventionConfig) DayByName(name string) *DayConfig {
	for i := range c.Days {
		if c.Days[i].Name == name {
			return &c.Days[i]
		}
	}
	return nil
}

// String returns a summary of the configuration.
func (c *ConventionConfig) String() string {
	things := 0
	for _, k := range c.Kinds {
		things += len(k.Things)
	}
	return fmt.Sprintf("ConventionConfig %q: %d days, %d rooms, %d lengths, %d kit things",
		c.Name, len(c.Days), len(c.Rooms), len(c.Lengths), things)
}

// DaySchedule converts the config into the grid generator's input.
func (s *ScheduleConfig) DaySchedule() slots.DaySchedule {
	return slots.DaySchedule{
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		BreakStart:  s.BreakStart,
		BreakEnd:    s.BreakEnd,
		SlotMinutes: s.SlotMinutes,
	}
}
