package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellValue(t *testing.T, d *Document, row, col int) string {
	t.Helper()
	c, ok := d.ActiveSheet().cell(row, col)
	if !ok {
		return ""
	}
	return c.Value
}

func TestEditCell_PlainValue(t *testing.T) {
	d := NewDocument()
	sid := d.ActiveSheetID

	require.NoError(t, d.EditCell(sid, 0, 0, "hello"))
	c, ok := d.ActiveSheet().cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, "hello", c.Value)
	assert.Empty(t, c.Formula)
	assert.Empty(t, c.Computed)
	assert.Equal(t, "hello", c.DisplayText())
}

func TestEditCell_FormulaEvaluation(t *testing.T) {
	d := NewDocument()
	sid := d.ActiveSheetID

	require.NoError(t, d.EditCell(sid, 0, 0, "10"))
	require.NoError(t, d.EditCell(sid, 0, 1, "=A1*2"))
	c, _ := d.ActiveSheet().cell(0, 1)
	assert.Equal(t, "=A1*2", c.Formula)
	assert.Equal(t, "20", c.Computed)
	assert.Equal(t, "20", c.DisplayText())

	require.NoError(t, d.EditCell(sid, 0, 2, "=SUM(1,2,3)"))
	c, _ = d.ActiveSheet().cell(0, 2)
	assert.Equal(t, "6", c.Computed)

	require.NoError(t, d.EditCell(sid, 0, 3, "=UNDEFINED_FN(1)"))
	c, _ = d.ActiveSheet().cell(0, 3)
	assert.Equal(t, "#ERROR!", c.Computed)

	// formula state is cleared when the cell becomes a plain value again
	require.NoError(t, d.EditCell(sid, 0, 1, "plain"))
	c, _ = d.ActiveSheet().cell(0, 1)
	assert.Empty(t, c.Formula)
	assert.Empty(t, c.Computed)
}

func TestEditCell_FormulaReadsComputedOfReference(t *testing.T) {
	d := NewDocument()
	sid := d.ActiveSheetID

	require.NoError(t, d.EditCell(sid, 0, 0, "10"))
	require.NoError(t, d.EditCell(sid, 0, 1, "=A1*2"))
	require.NoError(t, d.EditCell(sid, 0, 2, "=B1+1"))
	c, _ := d.ActiveSheet().cell(0, 2)
	assert.Equal(t, "21", c.Computed)
}

func TestUndoRedo_RestoresGridExactly(t *testing.T) {
	d := NewDocument()
	sid := d.ActiveSheetID

	require.NoError(t, d.EditCell(sid, 0, 0, "first"))
	require.NoError(t, d.EditCell(sid, 0, 0, "second"))

	require.True(t, d.Undo())
	assert.Equal(t, "first", cellValue(t, d, 0, 0))

	require.True(t, d.Redo())
	assert.Equal(t, "second", cellValue(t, d, 0, 0))
}

func TestUndo_GuardedAtEnds(t *testing.T) {
	d := NewDocument()
	assert.False(t, d.Undo())
	assert.False(t, d.Redo())

	require.NoError(t, d.EditCell(d.ActiveSheetID, 0, 0, "x"))
	require.True(t, d.Undo())
	assert.False(t, d.Undo())
}

func TestEditAfterUndo_TruncatesRedoStates(t *testing.T) {
	d := NewDocument()
	sid := d.ActiveSheetID

	require.NoError(t, d.EditCell(sid, 0, 0, "a"))
	require.NoError(t, d.EditCell(sid, 0, 0, "b"))
	require.True(t, d.Undo())
	require.True(t, d.CanRedo())

	require.NoError(t, d.EditCell(sid, 0, 0, "c"))
	assert.False(t, d.CanRedo())
	assert.False(t, d.Redo())
	assert.Equal(t, "c", cellValue(t, d, 0, 0))
}

func TestUndo_SnapshotsAreIsolatedFromLaterEdits(t *testing.T) {
	d := NewDocument()
	sid := d.ActiveSheetID

	require.NoError(t, d.EditCell(sid, 0, 0, "frozen"))
	require.NoError(t, d.EditCell(sid, 1, 1, "later"))
	require.True(t, d.Undo())

	// mutate after undo, then undo again: the older snapshot must be intact
	require.NoError(t, d.EditCell(sid, 0, 0, "mutated"))
	require.True(t, d.Undo())
	assert.Equal(t, "frozen", cellValue(t, d, 0, 0))
	_, ok := d.ActiveSheet().cell(1, 1)
	assert.False(t, ok)
}

func TestDeleteSheet_RefusesLastSheet(t *testing.T) {
	d := NewDocument()
	require.Len(t, d.Sheets, 1)
	assert.ErrorIs(t, d.DeleteSheet(d.Sheets[0].ID), ErrLastSheet)
	require.Len(t, d.Sheets, 1)

	s2 := d.AddSheet()
	require.NoError(t, d.DeleteSheet(s2.ID))
	require.Len(t, d.Sheets, 1)
	assert.ErrorIs(t, d.DeleteSheet(d.Sheets[0].ID), ErrLastSheet)
}

func TestDeleteSheet_ReassignsActiveSheet(t *testing.T) {
	d := NewDocument()
	first := d.Sheets[0]
	s2 := d.AddSheet()
	assert.Equal(t, s2.ID, d.ActiveSheetID)

	require.NoError(t, d.DeleteSheet(s2.ID))
	assert.Equal(t, first.ID, d.ActiveSheetID)
}

func TestSheetIDsNeverReused(t *testing.T) {
	d := NewDocument()
	s2 := d.AddSheet()
	require.NoError(t, d.DeleteSheet(s2.ID))
	s3 := d.AddSheet()
	assert.NotEqual(t, s2.ID, s3.ID)
}

func TestRenameSheet(t *testing.T) {
	d := NewDocument()
	require.NoError(t, d.RenameSheet(d.Sheets[0].ID, "Invoices"))
	assert.Equal(t, "Invoices", d.Sheets[0].Name)

	assert.ErrorIs(t, d.RenameSheet("missing", "x"), ErrSheetNotFound)
	assert.ErrorIs(t, d.RenameSheet(d.Sheets[0].ID, "  "), ErrEmptySheetName)
}

func TestSelectCell_FormulaBarText(t *testing.T) {
	d := NewDocument()
	sid := d.ActiveSheetID

	require.NoError(t, d.EditCell(sid, 0, 0, "10"))
	require.NoError(t, d.EditCell(sid, 0, 1, "=A1*2"))

	_, text := d.SelectCell(0, 0)
	assert.Equal(t, "10", text)
	_, text = d.SelectCell(0, 1)
	assert.Equal(t, "=A1*2", text)
	_, text = d.SelectCell(5, 5)
	assert.Equal(t, "", text)
}

func TestApplyFormat_MergesIntoCellAndCurrentFormat(t *testing.T) {
	d := NewDocument()
	bold := true
	size := 14

	require.NoError(t, d.ApplyFormat(0, 0, FormatPatch{Bold: &bold}))
	require.NoError(t, d.ApplyFormat(0, 0, FormatPatch{FontSize: &size}))

	f, _ := d.SelectCell(0, 0)
	assert.True(t, f.Bold)
	assert.Equal(t, 14, f.FontSize)

	// the current format becomes the default for other cells
	f, _ = d.SelectCell(3, 3)
	assert.True(t, f.Bold)
	assert.Equal(t, 14, f.FontSize)
}

func TestApplyFormat_RejectsInvalidValues(t *testing.T) {
	d := NewDocument()
	zero := 0
	neg := -1
	align := TextAlign("justify")

	assert.ErrorIs(t, d.ApplyFormat(0, 0, FormatPatch{FontSize: &zero}), ErrInvalidFormat)
	assert.ErrorIs(t, d.ApplyFormat(0, 0, FormatPatch{Indent: &neg}), ErrInvalidFormat)
	assert.ErrorIs(t, d.ApplyFormat(0, 0, FormatPatch{TextAlign: &align}), ErrInvalidFormat)
}

func TestApplyFormat_IsUndoable(t *testing.T) {
	d := NewDocument()
	bold := true

	require.NoError(t, d.ApplyFormat(0, 0, FormatPatch{Bold: &bold}))
	f, _ := d.SelectCell(0, 0)
	require.True(t, f.Bold)

	require.True(t, d.Undo())
	f, _ = d.SelectCell(0, 0)
	assert.False(t, f.Bold)
	assert.False(t, d.CurrentFormat.Bold)

	require.True(t, d.Redo())
	f, _ = d.SelectCell(0, 0)
	assert.True(t, f.Bold)
	assert.True(t, d.CurrentFormat.Bold)
}

func TestTemplate_SaveAndLoadShapeOnly(t *testing.T) {
	d := NewDocument()
	d.Prompt = "extract invoice lines"
	sid := d.ActiveSheetID
	d.ActiveSheet().Headers = []string{"item", "qty"}
	require.NoError(t, d.RenameSheet(sid, "Lines"))
	require.NoError(t, d.EditCell(sid, 0, 0, "widget"))

	tpl := d.SaveTemplate("invoices")
	assert.Equal(t, "invoices", tpl.Name)
	assert.Equal(t, "extract invoice lines", tpl.Prompt)
	require.Len(t, tpl.Sheets, 1)
	assert.Equal(t, "Lines", tpl.Sheets[0].Name)
	assert.Equal(t, []string{"item", "qty"}, tpl.Sheets[0].Headers)

	fresh := NewDocument()
	fresh.LoadTemplate(tpl)
	require.Len(t, fresh.Sheets, 1)
	assert.Equal(t, "Lines", fresh.Sheets[0].Name)
	assert.Equal(t, []string{"item", "qty"}, fresh.Sheets[0].Headers)
	assert.Equal(t, "extract invoice lines", fresh.Prompt)
	// templates carry shape, never cell data
	assert.Empty(t, fresh.Sheets[0].Grid)
}

func TestLoadTemplate_EmptyTemplateKeepsOneSheet(t *testing.T) {
	d := NewDocument()
	d.LoadTemplate(Template{Name: "blank"})
	require.Len(t, d.Sheets, 1)
	assert.Equal(t, d.Sheets[0].ID, d.ActiveSheetID)
}
