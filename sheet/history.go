package sheet

import (
	"github.com/tiendc/go-deepcopy"

	"github.com/hooper-lee/excant-backend/utils"
)

// snapshot is an immutable deep copy of {sheets, cellFormats, currentFormat}
// taken after every committed edit.
type snapshot struct {
	Sheets  []*Sheet
	Formats map[string]CellFormat
	Current CellFormat
}

// history is a linear sequence with a current-position cursor. Applying a new
// edit after undoing truncates all entries after the cursor.
type history struct {
	entries []snapshot
	cursor  int
}

func (d *Document) cloneState() snapshot {
	var snap snapshot
	// Deep copies are taken synchronously, so undo/redo cannot alias live
	// grid state.
	utils.ErrorPanic(deepcopy.Copy(&snap.Sheets, &d.Sheets))
	utils.ErrorPanic(deepcopy.Copy(&snap.Formats, &d.Formats))
	if snap.Formats == nil {
		snap.Formats = make(map[string]CellFormat)
	}
	for _, s := range snap.Sheets {
		if s.Grid == nil {
			s.Grid = make(map[Addr]*Cell)
		}
	}
	snap.Current = d.CurrentFormat
	return snap
}

func (d *Document) pushHistory() {
	h := &d.history
	if len(h.entries) > 0 {
		h.entries = h.entries[:h.cursor+1]
	}
	h.entries = append(h.entries, d.cloneState())
	h.cursor = len(h.entries) - 1
}

func (d *Document) restore(snap snapshot) {
	// Restore from a copy so the stored snapshot stays immutable.
	var sheets []*Sheet
	var formats map[string]CellFormat
	utils.ErrorPanic(deepcopy.Copy(&sheets, &snap.Sheets))
	utils.ErrorPanic(deepcopy.Copy(&formats, &snap.Formats))
	if formats == nil {
		formats = make(map[string]CellFormat)
	}
	for _, s := range sheets {
		if s.Grid == nil {
			s.Grid = make(map[Addr]*Cell)
		}
	}
	d.Sheets = sheets
	d.Formats = formats
	d.CurrentFormat = snap.Current
	if _, ok := d.sheetByID(d.ActiveSheetID); !ok {
		d.ActiveSheetID = d.Sheets[0].ID
	}
}

// CanUndo reports whether an older snapshot exists.
func (d *Document) CanUndo() bool { return d.history.cursor > 0 }

// CanRedo reports whether a newer snapshot exists.
func (d *Document) CanRedo() bool { return d.history.cursor < len(d.history.entries)-1 }

// Undo moves the history cursor back and restores that snapshot wholesale.
// No-op at the oldest entry.
func (d *Document) Undo() bool {
	if !d.CanUndo() {
		return false
	}
	d.history.cursor--
	d.restore(d.history.entries[d.history.cursor])
	return true
}

// Redo moves the history cursor forward and restores that snapshot wholesale.
// No-op at the newest entry.
func (d *Document) Redo() bool {
	if !d.CanRedo() {
		return false
	}
	d.history.cursor++
	d.restore(d.history.entries[d.history.cursor])
	return true
}
