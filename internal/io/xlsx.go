package io

import (
	"context"
	"fmt"
	stdio "io"

	"github.com/xuri/excelize/v2"

	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/schema"
)

// XLSXReader streams rows out of one sheet of an Excel workbook. The sheet
// is selected by name, by 0-based index, or defaults to the first sheet.
type XLSXReader struct {
	opts *config.ReaderOptions
}

// NewXLSXReader constructs an XLSX reader with the given options.
func NewXLSXReader(opts *config.ReaderOptions) *XLSXReader {
	return &XLSXReader{opts: opts}
}

// Open opens the source. Workbooks are parsed from the stream, so archive
// members need no scratch extraction.
func (r *XLSXReader) Open(path string, isArchive bool) (*Handle, error) {
	return OpenSource(path, isArchive)
}

// sheetName resolves the configured sheet in an opened workbook.
func (r *XLSXReader) sheetName(f *excelize.File, path string) (string, error) {
	if r.opts != nil && r.opts.SheetName != "" {
		for _, name := range f.GetSheetList() {
			if name == r.opts.SheetName {
				return name, nil
			}
		}
		return "", fmt.Errorf("%w: workbook '%s' has no sheet named '%s'", errs.ErrStream, path, r.opts.SheetName)
	}
	index := 0
	if r.opts != nil && r.opts.SheetIndex != nil {
		index = *r.opts.SheetIndex
	}
	sheets := f.GetSheetList()
	if index >= len(sheets) {
		return "", fmt.Errorf("%w: workbook '%s' has %d sheets, index %d requested", errs.ErrStream, path, len(sheets), index)
	}
	return sheets[index], nil
}

// openRows positions a row iterator past skipRows and returns it with the
// workbook it belongs to.
func (r *XLSXReader) openRows(h *Handle) (*excelize.File, *excelize.Rows, error) {
	f, err := excelize.OpenReader(h.Stream)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parsing workbook '%s': %v", errs.ErrStream, h.Path, err)
	}
	sheet, err := r.sheetName(f, h.Path)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: reading sheet '%s' of '%s': %v", errs.ErrStream, sheet, h.Path, err)
	}

	skip := 0
	if r.opts != nil {
		skip = r.opts.SkipRows
	}
	for i := 0; i < skip; i++ {
		if !rows.Next() {
			rows.Close()
			f.Close()
			return nil, nil, fmt.Errorf("%w: '%s' ended within the %d skipped leading rows", errs.ErrStream, h.Path, skip)
		}
	}
	return f, rows, nil
}

// Sample returns the header row's column names.
func (r *XLSXReader) Sample(h *Handle) ([]string, error) {
	f, rows, err := r.openRows(h)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("%w: workbook '%s' has no header row", errs.ErrStream, h.Path)
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header of '%s': %v", errs.ErrStream, h.Path, err)
	}
	return header, nil
}

// Read streams the sheet as typed batches.
func (r *XLSXReader) Read(ctx context.Context, h *Handle, readSchema schema.RecordSchema) (BatchIterator, error) {
	f, rows, err := r.openRows(h)
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		rows.Close()
		f.Close()
		return nil, fmt.Errorf("%w: workbook '%s' has no header row", errs.ErrStream, h.Path)
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		f.Close()
		return nil, fmt.Errorf("%w: reading header of '%s': %v", errs.ErrStream, h.Path, err)
	}

	builder, err := newTextBatchBuilder(h.Path, header, readSchema, r.opts)
	if err != nil {
		rows.Close()
		f.Close()
		return nil, err
	}
	return newTextIterator(&xlsxRowSource{file: f, rows: rows}, builder, r.opts), nil
}

type xlsxRowSource struct {
	file *excelize.File
	rows *excelize.Rows
}

func (s *xlsxRowSource) nextRow() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, stdio.EOF
	}
	return s.rows.Columns()
}

func (s *xlsxRowSource) close() error {
	s.rows.Close()
	return s.file.Close()
}
