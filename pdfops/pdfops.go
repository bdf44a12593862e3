// Package pdfops wraps the pdfcpu primitives the page tools need:
// counting pages, extracting a selection into a new file, and removing a
// selection from the original.
package pdfops

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrEmptySelection = errors.New("no pages selected")

func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}

// PageCount returns the number of pages in the PDF.
func PageCount(rs io.ReadSeeker) (int, error) {
	return api.PageCount(rs, conf())
}

// ExtractPages writes a new PDF containing only the selected pages, in
// ascending order.
func ExtractPages(rs io.ReadSeeker, pages []int) ([]byte, error) {
	if len(pages) == 0 {
		return nil, ErrEmptySelection
	}
	var out bytes.Buffer
	if err := api.Trim(rs, &out, pageSelection(pages), conf()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// RemovePages writes a new PDF with the selected pages removed.
func RemovePages(rs io.ReadSeeker, pages []int) ([]byte, error) {
	if len(pages) == 0 {
		return nil, ErrEmptySelection
	}
	var out bytes.Buffer
	if err := api.RemovePages(rs, &out, pageSelection(pages), conf()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func pageSelection(pages []int) []string {
	sel := make([]string, 0, len(pages))
	for _, p := range pages {
		sel = append(sel, strconv.Itoa(p))
	}
	return sel
}
