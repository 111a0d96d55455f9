// Package export renders check runs as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"conprog/internal/checks"
	"conprog/internal/kit"
	"conprog/internal/model"
)

const (
	SummarySheet  = "Summary"
	KitUsageSheet = "Kit usage"
	timeLayout    = "2006-01-02 15:04:05"
)

// Exporter writes check runs to a workbook on disk.
type Exporter struct {
	path   string
	logger *zerolog.Logger
}

// NewExporter writes workbooks to path.
func NewExporter(path string, logger *zerolog.Logger) *Exporter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exporter{path: path, logger: logger}
}

// HandleRun writes the run to the configured path. It matches
// checks.RunHook so it can be attached to the scheduler.
func (e *Exporter) HandleRun(run *checks.Run, snap *model.Snapshot) {
	if err := e.SaveRun(run, snap); err != nil {
		e.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to export check run")
		return
	}
	e.logger.Info().Str("run_id", run.ID).Str("path", e.path).Msg("Check run exported")
}

// SaveRun writes the workbook atomically: a temp file renamed into place.
func (e *Exporter) SaveRun(run *checks.Run, snap *model.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tmp := e.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WriteRun(f, run, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, e.path)
}

// WriteRun renders a summary sheet, one sheet per check and, when snap is
// given, a kit usage sheet.
func WriteRun(wr io.Writer, run *checks.Run, snap *model.Snapshot) error {
	w := NewExcelizeWriter()
	defer w.Close()

	if err := writeRun(w, run, snap); err != nil {
		return err
	}
	return w.Save(wr)
}

func writeRun(w SheetWriter, run *checks.Run, snap *model.Snapshot) error {
	if err := w.AddSheet(SummarySheet); err != nil {
		return err
	}
	if err := w.WriteRow([]any{"Run", run.ID}); err != nil {
		return err
	}
	if err := w.WriteRow([]any{"Started", run.StartedAt.Format(timeLayout)}); err != nil {
		return err
	}
	if err := w.WriteRow([]any{"Finished", run.FinishedAt.Format(timeLayout)}); err != nil {
		return err
	}
	if err := w.WriteRow([]any{"Violations", run.Total()}); err != nil {
		return err
	}
	if err := w.WriteRow(nil); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Check", "Description", "Shape", "Violations", "Status"}); err != nil {
		return err
	}
	for _, o := range run.Outputs {
		if err := w.WriteRow([]any{o.Check.Name, o.Check.Description, string(o.Check.Shape), o.Count, "ok"}); err != nil {
			return err
		}
	}
	for _, f := range run.Failures {
		if err := w.WriteRow([]any{f.Check, "", "", "", "failed: " + f.Error}); err != nil {
			return err
		}
	}

	for _, o := range run.Outputs {
		if err := writeOutput(w, o); err != nil {
			return fmt.Errorf("sheet %s: %w", o.Check.Name, err)
		}
	}

	if snap != nil {
		if err := writeKitUsage(w, kit.Summarize(snap)); err != nil {
			return fmt.Errorf("sheet %s: %w", KitUsageSheet, err)
		}
	}
	return nil
}

func writeOutput(w SheetWriter, o checks.Output) error {
	if err := w.AddSheet(o.Check.Name); err != nil {
		return err
	}

	width := 1
	for _, v := range o.Violations {
		if len(v) > width {
			width = len(v)
		}
	}
	header := make([]string, 0, width*2)
	for i := 1; i <= width; i++ {
		if width == 1 {
			header = append(header, "Kind", "Name")
			break
		}
		header = append(header, fmt.Sprintf("Kind %d", i), fmt.Sprintf("Name %d", i))
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}

	for _, v := range o.Violations {
		row := make([]any, 0, len(v)*2)
		for _, ref := range v {
			row = append(row, refKindLabel(ref.Kind), ref.Label)
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func writeKitUsage(w SheetWriter, usage []kit.Usage) error {
	if err := w.AddSheet(KitUsageSheet); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Kind", "Thing", "Count", "Room assignments", "Item assignments", "Bundles"}); err != nil {
		return err
	}
	for _, u := range usage {
		row := []any{u.Kind, u.Thing.Name, u.Thing.Count, u.RoomAssignments, u.ItemAssignments, strings.Join(u.Bundles, ", ")}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func refKindLabel(k checks.RefKind) string {
	switch k {
	case checks.RefItem:
		return "Item"
	case checks.RefPerson:
		return "Person"
	case checks.RefRoom:
		return "Room"
	case checks.RefKitThing:
		return "Kit"
	case checks.RefKitRoomAssignment:
		return "Kit in room"
	case checks.RefKitItemAssignment:
		return "Kit for item"
	}
	return string(k)
}
