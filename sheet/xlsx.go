package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the wire shape accepted by the export endpoint and produced
// from a Document for download.
type ExportSheet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Data    [][]any  `json:"data"`
}

// ExportSheets flattens the document's sparse grids into the export shape,
// rendering formula cells through their computed values.
func (d *Document) ExportSheets() []ExportSheet {
	out := make([]ExportSheet, 0, len(d.Sheets))
	for _, s := range d.Sheets {
		rows, cols := s.Extent()
		data := make([][]any, rows)
		for r := 0; r < rows; r++ {
			row := make([]any, cols)
			for c := 0; c < cols; c++ {
				if cell, ok := s.cell(r, c); ok {
					row[c] = cell.DisplayText()
				} else {
					row[c] = ""
				}
			}
			data[r] = row
		}
		out = append(out, ExportSheet{
			Name:    s.Name,
			Headers: append([]string(nil), s.Headers...),
			Data:    data,
		})
	}
	return out
}

// BuildWorkbook serializes sheets to an xlsx workbook with a styled header
// row and auto-sized columns.
func BuildWorkbook(sheets []ExportSheet) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	used := make(map[string]bool)
	for i, s := range sheets {
		name := sheetName(s.Name, i, used)
		used[name] = true
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, err
			}
		}

		widths := make([]int, len(s.Headers))
		for col, h := range s.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(name, cell, h); err != nil {
				return nil, err
			}
			widths[col] = len([]rune(h))
		}
		if len(s.Headers) > 0 {
			last, err := excelize.CoordinatesToCellName(len(s.Headers), 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
				return nil, err
			}
		}

		for r, row := range s.Data {
			for c, v := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+2)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(name, cell, v); err != nil {
					return nil, err
				}
				if c < len(widths) {
					if l := len([]rune(fmt.Sprint(v))); l > widths[c] {
						widths[c] = l
					}
				}
			}
		}

		for col, w := range widths {
			colName, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return nil, err
			}
			width := float64(w) + 4
			if width > 60 {
				width = 60
			}
			if err := f.SetColWidth(name, colName, colName, width); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func sheetName(name string, index int, used map[string]bool) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if len([]rune(name)) > 31 {
		name = string([]rune(name)[:31])
	}
	base := name
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s (%d)", base, n)
	}
	return name
}
