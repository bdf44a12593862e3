package sheet

// SheetShape is the data-free part of a sheet carried by a template.
type SheetShape struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
}

// Template is a named {prompt, sheet shapes} tuple used to re-seed a new
// document's shape without data.
type Template struct {
	Name   string       `json:"name"`
	Prompt string       `json:"prompt"`
	Sheets []SheetShape `json:"sheets"`
}

// SaveTemplate snapshots the document's sheet shapes and extraction prompt.
// Cell data is not carried.
func (d *Document) SaveTemplate(name string) Template {
	shapes := make([]SheetShape, 0, len(d.Sheets))
	for _, s := range d.Sheets {
		shapes = append(shapes, SheetShape{
			Name:    s.Name,
			Headers: append([]string(nil), s.Headers...),
		})
	}
	return Template{Name: name, Prompt: d.Prompt, Sheets: shapes}
}

// LoadTemplate replaces the document's sheets with fresh empty sheets in the
// template's shape and restores its prompt. New sheet ids are assigned; a
// template without sheets yields a single default sheet. Commits a snapshot.
func (d *Document) LoadTemplate(t Template) {
	d.Sheets = nil
	d.Formats = make(map[string]CellFormat)
	if len(t.Sheets) == 0 {
		d.addSheetLocked("Sheet 1")
	}
	for _, shape := range t.Sheets {
		s := d.addSheetLocked(shape.Name)
		s.Headers = append([]string(nil), shape.Headers...)
	}
	d.ActiveSheetID = d.Sheets[0].ID
	d.Prompt = t.Prompt
	d.pushHistory()
}
