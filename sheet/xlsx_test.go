package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWorkbook_HeadersAndData(t *testing.T) {
	f, err := BuildWorkbook([]ExportSheet{
		{
			Name:    "People",
			Headers: []string{"name", "age"},
			Data:    [][]any{{"Ada", 36}, {"Grace", 45}},
		},
		{
			Name:    "Empty",
			Headers: []string{"col"},
		},
	})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"People", "Empty"}, f.GetSheetList())

	v, err := f.GetCellValue("People", "A1")
	require.NoError(t, err)
	assert.Equal(t, "name", v)
	v, err = f.GetCellValue("People", "B2")
	require.NoError(t, err)
	assert.Equal(t, "36", v)
	v, err = f.GetCellValue("People", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Grace", v)
}

func TestBuildWorkbook_DeduplicatesSheetNames(t *testing.T) {
	f, err := BuildWorkbook([]ExportSheet{
		{Name: "Data", Headers: []string{"a"}},
		{Name: "Data", Headers: []string{"b"}},
	})
	require.NoError(t, err)
	defer f.Close()

	list := f.GetSheetList()
	require.Len(t, list, 2)
	assert.NotEqual(t, list[0], list[1])
}

func TestExportSheets_RendersComputedValues(t *testing.T) {
	d := NewDocument()
	sid := d.ActiveSheetID
	d.ActiveSheet().Headers = []string{"a", "b"}
	require.NoError(t, d.EditCell(sid, 0, 0, "10"))
	require.NoError(t, d.EditCell(sid, 0, 1, "=A1*2"))

	sheets := d.ExportSheets()
	require.Len(t, sheets, 1)
	require.Len(t, sheets[0].Data, 1)
	assert.Equal(t, []any{"10", "20"}, sheets[0].Data[0])
}
