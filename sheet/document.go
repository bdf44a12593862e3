// Package sheet holds the in-memory spreadsheet document model behind the
// extraction review flow: the grid of cells, per-cell formatting, linear
// undo/redo history and template shapes.
package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hooper-lee/excant-backend/formula"
)

var (
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrLastSheet      = errors.New("cannot delete the last remaining sheet")
	ErrInvalidFormat  = errors.New("invalid format value")
	ErrEmptySheetName = errors.New("sheet name is required")
)

// Addr addresses a cell by zero-based (row, column) indices.
type Addr struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Cell holds the raw text as typed or imported. Formula is set only when the
// value begins with "="; Computed caches the evaluation result and is only
// meaningful while Formula is set.
type Cell struct {
	Value    string `json:"value"`
	Formula  string `json:"formula,omitempty"`
	Computed string `json:"computed,omitempty"`
}

// DisplayText is what the grid renders: the computed result for formula
// cells, the raw value otherwise.
func (c *Cell) DisplayText() string {
	if c.Formula != "" {
		return c.Computed
	}
	return c.Value
}

// Sheet is one tab of the document. The grid is sparse; rows and columns grow
// implicitly as cells are addressed.
type Sheet struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Headers []string       `json:"headers"`
	Grid    map[Addr]*Cell `json:"-"`
}

func (s *Sheet) cell(row, col int) (*Cell, bool) {
	c, ok := s.Grid[Addr{Row: row, Col: col}]
	return c, ok
}

// Extent reports the exclusive row/column bounds covered by headers and grid.
func (s *Sheet) Extent() (rows, cols int) {
	cols = len(s.Headers)
	for addr := range s.Grid {
		if addr.Row+1 > rows {
			rows = addr.Row + 1
		}
		if addr.Col+1 > cols {
			cols = addr.Col + 1
		}
	}
	return rows, cols
}

// Document is the unit of state for one extraction/editing session.
// It always holds at least one sheet.
type Document struct {
	Sheets        []*Sheet              `json:"sheets"`
	ActiveSheetID string                `json:"activeSheetId"`
	Formats       map[string]CellFormat `json:"cellFormats"`
	CurrentFormat CellFormat            `json:"currentFormat"`
	Prompt        string                `json:"prompt"`

	history   history
	nextSheet int
}

// NewDocument creates a document with a single empty sheet and an initial
// history snapshot.
func NewDocument() *Document {
	d := &Document{
		Formats:       make(map[string]CellFormat),
		CurrentFormat: DefaultFormat(),
	}
	d.addSheetLocked("Sheet 1")
	d.pushHistory()
	return d
}

// FormatKey is the sparse format map key for one cell.
func FormatKey(sheetID string, row, col int) string {
	return fmt.Sprintf("%s-%d-%d", sheetID, row, col)
}

func (d *Document) sheetByID(id string) (*Sheet, bool) {
	for _, s := range d.Sheets {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// ActiveSheet returns the sheet referenced by ActiveSheetID.
func (d *Document) ActiveSheet() *Sheet {
	if s, ok := d.sheetByID(d.ActiveSheetID); ok {
		return s
	}
	// ActiveSheetID must always reference a present sheet; fall back to the
	// first tab if a restore left it dangling.
	return d.Sheets[0]
}

func (d *Document) addSheetLocked(name string) *Sheet {
	d.nextSheet++
	s := &Sheet{
		ID:   fmt.Sprintf("sheet-%d", d.nextSheet),
		Name: name,
		Grid: make(map[Addr]*Cell),
	}
	d.Sheets = append(d.Sheets, s)
	d.ActiveSheetID = s.ID
	return s
}

// AddSheet appends a new empty sheet, makes it active and commits a snapshot.
// Sheet ids are never reused within a session.
func (d *Document) AddSheet() *Sheet {
	s := d.addSheetLocked(fmt.Sprintf("Sheet %d", d.nextSheet+1))
	d.pushHistory()
	return s
}

// DeleteSheet removes a sheet. Deleting the last remaining sheet is refused.
func (d *Document) DeleteSheet(id string) error {
	if len(d.Sheets) == 1 {
		return ErrLastSheet
	}
	idx := -1
	for i, s := range d.Sheets {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSheetNotFound
	}
	d.Sheets = append(d.Sheets[:idx], d.Sheets[idx+1:]...)
	for key := range d.Formats {
		if strings.HasPrefix(key, id+"-") {
			delete(d.Formats, key)
		}
	}
	if d.ActiveSheetID == id {
		d.ActiveSheetID = d.Sheets[0].ID
	}
	d.pushHistory()
	return nil
}

// RenameSheet updates a sheet's display label. Names need not be unique.
func (d *Document) RenameSheet(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptySheetName
	}
	s, ok := d.sheetByID(id)
	if !ok {
		return ErrSheetNotFound
	}
	s.Name = name
	d.pushHistory()
	return nil
}

// EditCell sets the raw text of a cell. Text beginning with "=" is treated as
// a formula and evaluated immediately against the sheet's current grid state;
// otherwise any previous formula state is cleared. Commits a snapshot.
func (d *Document) EditCell(sheetID string, row, col int, text string) error {
	s, ok := d.sheetByID(sheetID)
	if !ok {
		return ErrSheetNotFound
	}
	addr := Addr{Row: row, Col: col}
	c, ok := s.Grid[addr]
	if !ok {
		c = &Cell{}
		s.Grid[addr] = c
	}
	c.Value = text
	if strings.HasPrefix(text, "=") {
		c.Formula = text
		c.Computed = formula.Evaluate(text, d.resolverFor(s))
	} else {
		c.Formula = ""
		c.Computed = ""
	}
	d.pushHistory()
	return nil
}

// resolverFor resolves A1 references against a sheet's current grid,
// preferring a formula cell's cached computed value over its raw text.
// Computed values are snapshots taken at edit time; there is no dependency
// graph and no recomputation propagation.
func (d *Document) resolverFor(s *Sheet) formula.Resolver {
	return func(row, col int) (string, bool) {
		c, ok := s.cell(row, col)
		if !ok {
			return "", false
		}
		if c.Formula != "" && c.Computed != "" {
			return c.Computed, true
		}
		return c.Value, true
	}
}

// SelectCell is a pure read: it returns the effective format for the cell
// (cell-specific override, else the document-wide current format) and the
// editable text for a formula bar (formula text if present, else the value).
func (d *Document) SelectCell(row, col int) (CellFormat, string) {
	s := d.ActiveSheet()
	f := d.CurrentFormat
	if override, ok := d.Formats[FormatKey(s.ID, row, col)]; ok {
		f = override
	}
	c, ok := s.cell(row, col)
	if !ok {
		return f, ""
	}
	if c.Formula != "" {
		return f, c.Formula
	}
	return f, c.Value
}

// ApplyFormat merges a format patch into the active sheet's cell format and
// into the current format used as the default for subsequently selected
// cells. Format edits commit a history snapshot, same as value edits.
func (d *Document) ApplyFormat(row, col int, patch FormatPatch) error {
	if err := patch.validate(); err != nil {
		return err
	}
	s := d.ActiveSheet()
	key := FormatKey(s.ID, row, col)
	base, ok := d.Formats[key]
	if !ok {
		base = d.CurrentFormat
	}
	patch.apply(&base)
	d.Formats[key] = base
	patch.apply(&d.CurrentFormat)
	d.pushHistory()
	return nil
}
